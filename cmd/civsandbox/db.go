package main

import (
	"context"
	"fmt"
	"strings"

	"civsandbox/internal/archive"
	"civsandbox/internal/archive/mysql"
	"civsandbox/internal/archive/postgres"
	"civsandbox/internal/archive/sqlite"
)

// openArchive picks the backend from the DSN scheme and ensures its schema.
func openArchive(ctx context.Context, dsn string) (archive.Store, error) {
	var (
		store archive.Store
		err   error
	)
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		store, err = sqlite.New(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		store, err = postgres.New(ctx, dsn)
	case strings.HasPrefix(dsn, "mysql://"):
		store, err = mysql.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported archive dsn %q", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close(ctx)
		return nil, fmt.Errorf("ensure archive schema: %w", err)
	}
	return store, nil
}
