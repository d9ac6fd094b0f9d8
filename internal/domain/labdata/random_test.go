package labdata

import "testing"

func TestNewRand_Reproducible(t *testing.T) {
	a, b := NewRand(12), NewRand(12)
	for i := 0; i < 100; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestNewRand_ZeroSeed(t *testing.T) {
	if NewRand(0) == nil {
		t.Fatal("expected a time-seeded source")
	}
}

func TestBetween(t *testing.T) {
	rng := NewRand(3)
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := between(rng, 1, 4)
		if v < 1 || v > 4 {
			t.Fatalf("value %d outside [1,4]", v)
		}
		seen[v] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected every value in [1,4] to occur, got %v", seen)
	}
	if got := between(rng, 5, 5); got != 5 {
		t.Errorf("between(5,5) = %d", got)
	}
	if got := between(rng, 7, 3); got != 7 {
		t.Errorf("inverted range should return lo, got %d", got)
	}
}
