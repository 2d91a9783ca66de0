package recognition

import (
	"testing"
	"time"
)

func TestCooldownCacheAdmit(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	c := NewCooldownCache(120 * time.Second)

	if !c.Admit("ABC1D23", t0) {
		t.Fatal("first sighting should be admitted")
	}
	if c.Admit("ABC1D23", t0.Add(10*time.Second)) {
		t.Fatal("sighting inside the window should not be admitted")
	}
	if last, _ := c.Last("ABC1D23"); !last.Equal(t0) {
		t.Errorf("rejected sighting moved the timestamp to %v", last)
	}
	if c.Admit("ABC1D23", t0.Add(119*time.Second)) {
		t.Fatal("sighting at 119s should not be admitted")
	}
	if !c.Admit("ABC1D23", t0.Add(120*time.Second)) {
		t.Fatal("sighting at exactly the window should be admitted")
	}
	if !c.Admit("XYZ9876", t0.Add(10*time.Second)) {
		t.Fatal("other plates have independent windows")
	}
}

func TestCooldownCachePrune(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	c := NewCooldownCache(time.Minute)
	c.Admit("AAA1111", t0)
	c.Admit("BBB2222", t0.Add(30*time.Second))

	if n := c.Prune(t0.Add(61 * time.Second)); n != 1 {
		t.Fatalf("Prune removed %d entries, want 1", n)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	if _, ok := c.Last("BBB2222"); !ok {
		t.Error("entry still inside its window was pruned")
	}
}
