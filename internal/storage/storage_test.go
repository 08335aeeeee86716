package storage

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/NeoOrigin/flint-sub000/internal/config"
)

func TestRegisterAndNew(t *testing.T) {
	t.Parallel()

	var got Config
	Register("Fake-Register", func(_ context.Context, cfg Config) (Repository, error) {
		got = cfg
		return &fakeRepo{}, nil
	})
	if !slices.Contains(Kinds(), "fake-register") {
		t.Fatalf("Kinds() = %v, want fake-register", Kinds())
	}

	repo, err := New(context.Background(), Config{Kind: "FAKE-REGISTER", Table: "t"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	repo.Close()
	if got.Table != "t" || !repo.(*fakeRepo).closed {
		t.Fatalf("factory cfg = %+v", got)
	}
}

func TestNewUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	t.Parallel()

	f := func(context.Context, Config) (Repository, error) { return nil, nil }
	Register("fake-twice", f)
	defer func() {
		if recover() == nil {
			t.Fatal("second Register did not panic")
		}
	}()
	Register("fake-twice", f)
}

func TestFromSink(t *testing.T) {
	t.Parallel()

	s := config.Sink{Kind: " SQLite ", DSN: "x.db", Table: "out", Columns: []string{"a"}, AutoCreateTable: true, BatchSize: 7}
	cfg := FromSink("deploy", s)
	if cfg.Kind != "sqlite" || cfg.Engine != "deploy" || cfg.batchSize() != 7 || !cfg.AutoCreateTable {
		t.Fatalf("FromSink = %+v", cfg)
	}
	s.Columns[0] = "changed"
	if cfg.Columns[0] != "a" {
		t.Fatal("FromSink shares the columns slice")
	}
	if (Config{}).batchSize() != DefaultBatchSize {
		t.Fatal("zero BatchSize does not default")
	}
}
