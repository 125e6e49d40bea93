package channels

import (
	"slices"
	"sync"
	"testing"
)

func TestStore_EmptyAllowsNothing(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if s.Allowed("chan-1") {
		t.Fatal("empty store allowed a channel")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}

func TestStore_AddRemove(t *testing.T) {
	t.Parallel()

	s := NewStore()

	if !s.Add("chan-1") {
		t.Fatal("first Add returned false")
	}
	if s.Add("chan-1") {
		t.Fatal("duplicate Add returned true")
	}
	if !s.Allowed("chan-1") {
		t.Fatal("added channel not allowed")
	}

	if !s.Remove("chan-1") {
		t.Fatal("Remove of present channel returned false")
	}
	if s.Remove("chan-1") {
		t.Fatal("Remove of absent channel returned true")
	}
	if s.Allowed("chan-1") {
		t.Fatal("removed channel still allowed")
	}
}

func TestStore_AddEmptyID(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if s.Add("") {
		t.Fatal("empty channel ID was accepted")
	}
}

func TestStore_InitialAndList(t *testing.T) {
	t.Parallel()

	s := NewStore("chan-b", "chan-a", "", "chan-c")

	want := []string{"chan-a", "chan-b", "chan-c"}
	if got := s.List(); !slices.Equal(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := NewStore()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i))
			s.Add(id)
			s.Allowed(id)
			s.List()
			s.Remove(id)
		}()
	}
	wg.Wait()
}
