package history

import (
	"strconv"
	"testing"

	"github.com/dgnsrekt/wa_relay/internal/types"
)

func textRecord(text string) types.Record {
	return types.Record{From: "A", Name: "A", Text: text}
}

func TestAppendKeepsArrivalOrder(t *testing.T) {
	b := NewBuffer(5)
	for i := range 3 {
		if got := b.Append(textRecord(strconv.Itoa(i))); got != 0 {
			t.Fatalf("Append() evicted = %d; want 0", got)
		}
	}
	snap := b.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len(Snapshot()) = %d; want 3", len(snap))
	}
	for i, rec := range snap {
		if rec.Text != strconv.Itoa(i) {
			t.Fatalf("Snapshot()[%d].Text = %q; want %q", i, rec.Text, strconv.Itoa(i))
		}
	}
}

func TestAppendEvictsOldestAtDefaultCapacity(t *testing.T) {
	b := NewBuffer(0)
	if got := b.Cap(); got != DefaultCapacity {
		t.Fatalf("Cap() = %d; want %d", got, DefaultCapacity)
	}

	evicted := 0
	for i := 0; i <= 200; i++ {
		evicted += b.Append(textRecord(strconv.Itoa(i)))
	}

	if evicted != 1 {
		t.Fatalf("total evicted = %d; want 1", evicted)
	}
	snap := b.Snapshot()
	if len(snap) != 200 {
		t.Fatalf("len(Snapshot()) = %d; want 200", len(snap))
	}
	if snap[0].Text != "1" {
		t.Fatalf("first record = %q; want %q", snap[0].Text, "1")
	}
	if snap[199].Text != "200" {
		t.Fatalf("last record = %q; want %q", snap[199].Text, "200")
	}
}

func TestAppendRetainsMostRecentWindow(t *testing.T) {
	cases := []struct {
		name     string
		capacity int
		total    int
	}{
		{name: "exactly full", capacity: 4, total: 4},
		{name: "one over", capacity: 4, total: 5},
		{name: "many over", capacity: 4, total: 97},
		{name: "capacity one", capacity: 1, total: 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuffer(tc.capacity)
			for i := range tc.total {
				b.Append(textRecord(strconv.Itoa(i)))
			}
			snap := b.Snapshot()
			if len(snap) != tc.capacity {
				t.Fatalf("len(Snapshot()) = %d; want %d", len(snap), tc.capacity)
			}
			first := tc.total - tc.capacity
			for i, rec := range snap {
				if want := strconv.Itoa(first + i); rec.Text != want {
					t.Fatalf("Snapshot()[%d].Text = %q; want %q", i, rec.Text, want)
				}
			}
		})
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	b := NewBuffer(3)
	b.Append(textRecord("a"))

	snap := b.Snapshot()
	snap[0].Text = "mutated"
	b.Append(textRecord("b"))

	again := b.Snapshot()
	if again[0].Text != "a" {
		t.Fatalf("buffer was mutated through snapshot: %q", again[0].Text)
	}
	if len(snap) != 1 {
		t.Fatalf("old snapshot length changed to %d", len(snap))
	}
}
