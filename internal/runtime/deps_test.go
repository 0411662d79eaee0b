package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/mohammad-safakhou/sitechat/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Storage.Postgres = config.PostgresConfig{
		Host:     "db",
		Port:     "5432",
		User:     "sitechat",
		Password: "p@ss",
		DBName:   "sitechat",
	}
	return cfg
}

func TestBuildNilConfig(t *testing.T) {
	if _, err := Build(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestCloseRunsClosersInReverse(t *testing.T) {
	var order []int
	d := &Deps{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return errors.New("boom") },
		func() error { order = append(order, 3); return nil },
	}}
	err := d.Close()
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(order) != 3 || order[0] != 3 || order[2] != 1 {
		t.Fatalf("unexpected close order %v", order)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	var nilDeps *Deps
	if err := nilDeps.Close(); err != nil {
		t.Fatalf("nil deps close: %v", err)
	}
}
