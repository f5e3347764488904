package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

func withGoose(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return fn()
}

// Migrate applies every pending migration and returns the resulting schema version.
func Migrate(ctx context.Context, conn *sql.DB) (int64, error) {
	if conn == nil {
		return 0, errors.New("migrate: nil database")
	}
	var version int64
	err := withGoose(func() error {
		if err := goose.UpContext(ctx, conn, "migrations"); err != nil {
			return err
		}
		v, err := goose.GetDBVersionContext(ctx, conn)
		version = v
		return err
	})
	return version, err
}
