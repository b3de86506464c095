package election

import "testing"

func TestCompareLexicographic(t *testing.T) {
	cases := []struct {
		a, b ID
		want int
	}{
		{New(5), New(7), -1},
		{New(7), New(5), 1},
		{New(7), New(7), 0},
		{ID{High: 1, Low: 0}, ID{High: 0, Low: 100}, 1},
		{ID{High: 0, Low: 100}, ID{High: 1, Low: 0}, -1},
	}
	for _, c := range cases {
		if got := Compare(c.a, c.b); got != c.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestZeroIsUnset(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatal("Zero.IsZero() = false")
	}
	if New(1).IsZero() {
		t.Fatal("New(1).IsZero() = true")
	}
}

func TestNextMonotonic(t *testing.T) {
	id := New(5)
	next := id.Next()
	if !Less(id, next) {
		t.Fatalf("Next() did not increase: %v -> %v", id, next)
	}
}

func TestNextCarries(t *testing.T) {
	id := ID{High: 0, Low: ^uint64(0)}
	next := id.Next()
	if next.High != 1 || next.Low != 0 {
		t.Fatalf("Next() = %+v, want carry to {1, 0}", next)
	}
}
