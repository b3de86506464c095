package backoff

import (
	"math/rand"
	"testing"
	"time"
)

func TestScheduleCapsAndJitters(t *testing.T) {
	p := Default()
	p.Rand = rand.New(rand.NewSource(1))
	s := New(p)

	for i := 0; i < 10; i++ {
		d := s.Next()
		if d < 0 {
			t.Fatalf("negative delay at attempt %d: %v", i, d)
		}
		if d > p.Cap {
			t.Fatalf("delay %v exceeds cap %v at attempt %d", d, p.Cap, i)
		}
	}
	if s.Attempt() != 10 {
		t.Fatalf("attempt = %d, want 10", s.Attempt())
	}
}

func TestScheduleFirstAttemptBoundedByBase(t *testing.T) {
	p := Default()
	p.Rand = rand.New(rand.NewSource(2))
	s := New(p)
	d := s.Next()
	if d < 0 || d >= p.Base {
		t.Fatalf("first delay %v not in [0, %v)", d, p.Base)
	}
}

func TestScheduleReset(t *testing.T) {
	p := Default()
	p.Rand = rand.New(rand.NewSource(3))
	s := New(p)
	for i := 0; i < 5; i++ {
		s.Next()
	}
	s.Reset()
	if s.Attempt() != 0 {
		t.Fatalf("attempt after reset = %d, want 0", s.Attempt())
	}
	d := s.Next()
	if d >= p.Base {
		t.Fatalf("post-reset delay %v not bounded by base %v", d, p.Base)
	}
}

func TestScheduleGrowsTowardCap(t *testing.T) {
	p := Policy{Base: time.Second, Factor: 2, Cap: 30 * time.Second, Rand: rand.New(rand.NewSource(4))}
	s := New(p)
	var last time.Duration
	for i := 0; i < 20; i++ {
		last = s.Next()
	}
	if last > p.Cap {
		t.Fatalf("delay %v exceeds cap after many attempts", last)
	}
}
