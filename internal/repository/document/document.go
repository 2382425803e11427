// Package document stores domain aggregates as JSON documents in a storage.Store.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func load(ctx context.Context, store storage.Store, key string, dst any) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return apperrors.Persistence("load "+key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return apperrors.Persistence("load "+key, fmt.Errorf("unmarshal document: %w", err))
	}
	return nil
}

func save(ctx context.Context, store storage.Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.Persistence("save "+key, fmt.Errorf("marshal document: %w", err))
	}
	if err := store.Set(ctx, key, data); err != nil {
		return apperrors.Persistence("save "+key, err)
	}
	return nil
}

func remove(ctx context.Context, store storage.Store, key string) error {
	if err := store.Remove(ctx, key); err != nil {
		return apperrors.Persistence("remove "+key, err)
	}
	return nil
}
