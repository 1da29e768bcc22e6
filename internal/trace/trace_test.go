package trace

import (
	"context"
	"testing"
)

func TestCorrelationID_RoundTrip(t *testing.T) {
	id := NewCorrelationID()
	if id == "" {
		t.Fatal("expected non-empty correlation ID")
	}

	ctx := WithCorrelationID(context.Background(), id)
	if got := CorrelationID(ctx); got != id {
		t.Errorf("expected %q, got %q", id, got)
	}
}

func TestCorrelationID_MissingIsEmpty(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("expected empty ID on bare context, got %q", got)
	}
}

func TestNewCorrelationID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewCorrelationID()
		if seen[id] {
			t.Fatalf("duplicate correlation ID %q", id)
		}
		seen[id] = true
	}
}
