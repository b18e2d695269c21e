package store

import (
	"fmt"
	"sync"
	"testing"
)

func TestInsertOrdering(t *testing.T) {
	s := New(100, nil)
	for _, ts := range []int64{5, 1, 3, 3, 9, 2} {
		s.Insert(Message{Content: fmt.Sprintf("t%d", ts), Timestamp: ts})
	}
	got := s.Snapshot(100, 0)
	if len(got) != 6 {
		t.Fatalf("unexpected length: %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Fatalf("not sorted at %d: %v", i, got)
		}
	}
}

func TestInsertTieBreakPreservesArrival(t *testing.T) {
	s := New(100, nil)
	s.Insert(Message{Content: "first", Timestamp: 7})
	s.Insert(Message{Content: "second", Timestamp: 7})
	s.Insert(Message{Content: "third", Timestamp: 7})
	got := s.Snapshot(100, 0)
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if got[i].Content != w {
			t.Fatalf("tie order broken: got %q at %d, want %q", got[i].Content, i, w)
		}
	}
}

func TestInsertOlderTimestampGoesBeforeNewer(t *testing.T) {
	s := New(100, nil)
	s.Insert(Message{Content: "late", Timestamp: 100})
	s.Insert(Message{Content: "early", Timestamp: 50})
	got := s.Snapshot(100, 0)
	if got[0].Content != "early" || got[1].Content != "late" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestCapacityEviction(t *testing.T) {
	const capacity = 20
	s := New(capacity, nil)
	for i := 0; i < capacity+5; i++ {
		s.Insert(Message{Content: fmt.Sprintf("m%d", i), Timestamp: int64(i)})
	}
	if s.Len() != capacity {
		t.Fatalf("size = %d, want %d", s.Len(), capacity)
	}
	got := s.Snapshot(capacity, 0)
	if got[0].Timestamp != 5 {
		t.Fatalf("oldest retained timestamp = %d, want 5", got[0].Timestamp)
	}
	if got[len(got)-1].Timestamp != int64(capacity+4) {
		t.Fatalf("newest timestamp = %d, want %d", got[len(got)-1].Timestamp, capacity+4)
	}
}

func TestSnapshotWindow(t *testing.T) {
	s := New(100, nil)
	for i := 0; i < 10; i++ {
		s.Insert(Message{Timestamp: int64(i)})
	}
	cases := []struct {
		maxRows, offset int
		wantLen         int
		wantFirst       int64
	}{
		{4, 0, 4, 6},
		{4, 3, 4, 3},
		{20, 0, 10, 0},
		{4, 10, 0, 0},
		{4, 15, 0, 0},
		{0, 0, 0, 0},
	}
	for _, tc := range cases {
		got := s.Snapshot(tc.maxRows, tc.offset)
		if len(got) != tc.wantLen {
			t.Fatalf("Snapshot(%d,%d) len = %d, want %d", tc.maxRows, tc.offset, len(got), tc.wantLen)
		}
		if tc.wantLen > 0 && got[0].Timestamp != tc.wantFirst {
			t.Fatalf("Snapshot(%d,%d) first = %d, want %d", tc.maxRows, tc.offset, got[0].Timestamp, tc.wantFirst)
		}
	}
}

func TestClear(t *testing.T) {
	dirty := &Flag{}
	s := New(10, dirty)
	s.Insert(Message{Timestamp: 1})
	dirty.Consume()
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("size after clear = %d", s.Len())
	}
	if !dirty.Consume() {
		t.Fatal("clear did not set dirty flag")
	}
}

func TestDirtyFlag(t *testing.T) {
	dirty := &Flag{}
	s := New(10, dirty)
	if dirty.Consume() {
		t.Fatal("flag set before any mutation")
	}
	s.Insert(Message{Timestamp: 1})
	if !dirty.Consume() {
		t.Fatal("insert did not set dirty flag")
	}
	if dirty.Consume() {
		t.Fatal("consume did not clear flag")
	}
}

func TestConcurrentInsert(t *testing.T) {
	s := New(500, nil)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Insert(Message{Timestamp: int64(g*50 + i)})
				_ = s.Snapshot(20, 0)
			}
		}(g)
	}
	wg.Wait()
	if s.Len() != 400 {
		t.Fatalf("size = %d, want 400", s.Len())
	}
	got := s.Snapshot(400, 0)
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Fatalf("not sorted after concurrent inserts at %d", i)
		}
	}
}
