package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/menubot/core/config"
	"github.com/m3rciful/menubot/core/conversation"
	coredatabase "github.com/m3rciful/menubot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	called := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			called = true
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called || res.DB != nil {
		t.Fatal("database must not be touched without database.host")
	}
	if err := res.Journal.RecordHandoff(context.Background(), conversation.Handoff{}); err != nil {
		t.Fatalf("disabled journal returned %v", err)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRunMigratesThenConnects(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Database.Host = "db"

	var order []string
	res, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Migrate: func(context.Context, coreconfig.DatabaseConfig) error {
			order = append(order, "migrate")
			return nil
		},
		Connect: func(_ context.Context, c coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			order = append(order, "connect")
			// sql.Open validates arguments only; no server is contacted.
			db, err := sql.Open("postgres", coredatabase.DSN(c))
			if err != nil {
				return nil, err
			}
			return sqlx.NewDb(db, "postgres"), nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer res.Close()

	if len(order) != 2 || order[0] != "migrate" || order[1] != "connect" {
		t.Fatalf("order = %v", order)
	}
	if _, ok := res.Journal.(*coredatabase.Journal); !ok {
		t.Fatalf("journal type %T", res.Journal)
	}
}

func TestRunPropagatesFailures(t *testing.T) {
	boom := errors.New("boom")
	if _, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
	}); !errors.Is(err, boom) {
		t.Fatalf("logger failure: got %v", err)
	}

	cfg := &coreconfig.Config{}
	cfg.Database.Host = "db"
	if _, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Migrate:    func(context.Context, coreconfig.DatabaseConfig) error { return boom },
	}); !errors.Is(err, boom) {
		t.Fatalf("migrate failure: got %v", err)
	}

	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("nil config must fail")
	}
}
