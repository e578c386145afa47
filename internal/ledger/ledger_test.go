package ledger

import (
	"context"
	"testing"
	"time"
)

// openTestLedger opens an in-memory SQLiteLedger for use in tests.
func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func Test_Ledger_RecordAndList(t *testing.T) {
	t.Parallel()
	l := openTestLedger(t)
	ctx := context.Background()

	if err := l.Record(ctx, Entry{Source: "notes.txt", Chunks: 4, Bytes: 3200}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Record(ctx, Entry{Source: "manual.pdf", Chunks: 40, Bytes: 38000}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := l.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	// Ordered by source name.
	if entries[0].Source != "manual.pdf" || entries[1].Source != "notes.txt" {
		t.Errorf("unexpected order: %q, %q", entries[0].Source, entries[1].Source)
	}
	if entries[0].Chunks != 40 || entries[0].Bytes != 38000 {
		t.Errorf("manual.pdf entry = %+v", entries[0])
	}
	if entries[0].IngestedAt.IsZero() {
		t.Error("IngestedAt not populated")
	}
}

func Test_Ledger_RecordReplacesSource(t *testing.T) {
	t.Parallel()
	l := openTestLedger(t)
	ctx := context.Background()

	first := Entry{Source: "notes.txt", Chunks: 4, Bytes: 3200, IngestedAt: time.Unix(1000, 0)}
	if err := l.Record(ctx, first); err != nil {
		t.Fatalf("record: %v", err)
	}
	second := Entry{Source: "notes.txt", Chunks: 6, Bytes: 5000, IngestedAt: time.Unix(2000, 0)}
	if err := l.Record(ctx, second); err != nil {
		t.Fatalf("re-record: %v", err)
	}

	entries, err := l.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 entry after upsert, got %d", len(entries))
	}
	if entries[0].Chunks != 6 || entries[0].Bytes != 5000 {
		t.Errorf("entry not replaced: %+v", entries[0])
	}
	if !entries[0].IngestedAt.Equal(time.Unix(2000, 0)) {
		t.Errorf("IngestedAt = %v, want updated timestamp", entries[0].IngestedAt)
	}
}

func Test_Ledger_Clear(t *testing.T) {
	t.Parallel()
	l := openTestLedger(t)
	ctx := context.Background()

	if err := l.Record(ctx, Entry{Source: "a.txt", Chunks: 1, Bytes: 10}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	entries, err := l.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("want empty ledger, got %d entries", len(entries))
	}
}

func Test_Ledger_EmptyList(t *testing.T) {
	t.Parallel()
	l := openTestLedger(t)

	entries, err := l.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("want no entries, got %d", len(entries))
	}
}
