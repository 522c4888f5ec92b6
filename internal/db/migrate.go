package db

import (
	"context"
	"database/sql"
	"embed"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to date. It opens its own database/sql
// handle because goose does not speak pgxpool.
func Migrate(ctx context.Context, dbURL string) error {
	handle, err := sql.Open("pgx", dbURL)

	if err != nil {
		return err
	}

	defer handle.Close()

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, handle, "migrations")
}
