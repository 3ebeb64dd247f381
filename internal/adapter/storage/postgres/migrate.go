package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the embedded schema. Every statement is IF NOT EXISTS,
// so running it against an up-to-date database is a no-op.
func Migrate(ctx context.Context, pool Pool, log zerolog.Logger) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Msg("database schema up to date")
	return nil
}
