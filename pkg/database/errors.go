package database

import (
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Message fragments of connection failures that reach us as plain errors.
var connErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"server closed the connection unexpectedly",
}

// isConnectionError reports whether err is a transient connection problem
// rather than an error raised by the server for the statement itself.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is "connection exception"; anything else came from a
		// healthy connection.
		return strings.HasPrefix(pgErr.Code, "08")
	}
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return true
	}
	msg := err.Error()
	for _, p := range connErrorPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
