package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/command"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// CommandHandler accepts intent-addressed commands.
type CommandHandler struct {
	dispatcher *command.Dispatcher
	logger     *slog.Logger
}

// NewCommandHandler creates a new command HTTP handler.
func NewCommandHandler(dispatcher *command.Dispatcher, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher, logger: logger}
}

// Dispatch handles POST /api/v1/commands
func (h *CommandHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	shopperID, err := middleware.MustShopperID(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var cmd command.Command
	if err := validator.DecodeAndValidate(r, &cmd); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), shopperID, cmd)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if session, ok := result.(*domain.CheckoutSession); ok {
		result = redactCard(session)
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// Intents handles GET /api/v1/commands
func (h *CommandHandler) Intents(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.dispatcher.Intents())
}
