package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/dspreview/internal/domain"
)

// --- Open Tests ---

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, Config{
		Driver:     DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	if b.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", b.Driver)
	}
	if err := b.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
	if _, _, err := b.Jobs.Enqueue(ctx, domain.JobKey{Type: "/splits", Dataset: "squad"}); err != nil {
		t.Errorf("enqueue: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mongo"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
