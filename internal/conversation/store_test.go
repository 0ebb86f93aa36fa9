package conversation

import (
	"context"
	"testing"
)

func TestMemoryStoreAppendAndHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Append(ctx, "+111", Entry{Role: RoleUser, Text: "hola"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, "+111", Entry{Role: RoleModel, Text: "buenas"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, "+222", Entry{Role: RoleUser, Text: "otra persona"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := store.History(ctx, "+111")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Role != RoleUser || history[0].Text != "hola" {
		t.Fatalf("unexpected first entry: %+v", history[0])
	}
	if history[1].Role != RoleModel || history[1].Text != "buenas" {
		t.Fatalf("unexpected second entry: %+v", history[1])
	}

	other, err := store.History(ctx, "+222")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("expected 1 entry for second user, got %d", len(other))
	}
}

func TestMemoryStoreHistoryReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Append(ctx, "+111", Entry{Role: RoleUser, Text: "hola"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	first, _ := store.History(ctx, "+111")
	first[0].Text = "mutated"

	again, _ := store.History(ctx, "+111")
	if again[0].Text != "hola" {
		t.Fatalf("history was mutated through returned slice: %+v", again[0])
	}
}

func TestMemoryStoreUnknownUser(t *testing.T) {
	store := NewMemoryStore()
	history, err := store.History(context.Background(), "+999")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(history))
	}
}
