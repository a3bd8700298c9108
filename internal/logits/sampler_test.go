package logits

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// scriptedSource replays a fixed sequence of draws and counts calls.
type scriptedSource struct {
	draws []float64
	calls int
}

func (s *scriptedSource) Float64() float64 {
	d := s.draws[s.calls%len(s.draws)]
	s.calls++
	return d
}

// TestSampleDeterminism ensures two identically seeded sources produce the
// same index sequence.
func TestSampleDeterminism(t *testing.T) {
	dist := []float64{0.1, 0.2, 0.3, 0.4}
	r1 := rand.New(rand.NewSource(42))
	r2 := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		a, err := Sample(dist, r1)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Sample(dist, r2)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Fatalf("draw %d: expected deterministic sample, got %d vs %d", i, a, b)
		}
	}
}

func TestSampleDegenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		idx, err := Sample([]float64{1, 0, 0}, rng)
		if err != nil || idx != 0 {
			t.Fatalf("expected 0, got %d (%v)", idx, err)
		}
		idx, err = Sample([]float64{0, 0, 1}, rng)
		if err != nil || idx != 2 {
			t.Fatalf("expected 2, got %d (%v)", idx, err)
		}
	}
}

func TestSampleSkipsZeroMassOnZeroDraw(t *testing.T) {
	for _, d := range []float64{0, 0.5, 0.9999999} {
		src := &scriptedSource{draws: []float64{d}}
		idx, err := Sample([]float64{0, 0, 1}, src)
		if err != nil {
			t.Fatal(err)
		}
		if idx != 2 {
			t.Fatalf("d=%v: expected index 2, got %d", d, idx)
		}
	}
}

func TestSampleUniformConverges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 20000
	var counts [2]int
	for i := 0; i < n; i++ {
		idx, err := Sample([]float64{0.5, 0.5}, rng)
		if err != nil {
			t.Fatal(err)
		}
		counts[idx]++
	}
	frac := float64(counts[0]) / n
	if math.Abs(frac-0.5) > 0.02 {
		t.Fatalf("expected near-equal frequencies, got %v", counts)
	}
}

func TestSampleRetriesShortDistribution(t *testing.T) {
	dist := []float64{0.5, 0.499999}
	// First draws land past the cumulative mass, the fifth is inside it.
	src := &scriptedSource{draws: []float64{0.9999995, 0.9999999, 0.99999995, 0.9999992, 0.75}}
	idx, err := Sample(dist, src)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if src.calls != 5 {
		t.Fatalf("expected 5 draws, got %d", src.calls)
	}
}

func TestSampleShortDistributionAnyDrawInside(t *testing.T) {
	dist := []float64{0.25, 0.25, 0.25, 0.249999}
	for _, d := range []float64{0, 0.1, 0.25, 0.5, 0.9, 0.99999} {
		src := &scriptedSource{draws: []float64{d}}
		if _, err := Sample(dist, src); err != nil {
			t.Fatalf("draw %v: unexpected error %v", d, err)
		}
		if src.calls != 1 {
			t.Fatalf("draw %v: expected a single draw, got %d", d, src.calls)
		}
	}
}

func TestSampleAllZeroFails(t *testing.T) {
	src := &scriptedSource{draws: []float64{0.3, 0.6, 0.9}}
	_, err := Sample([]float64{0, 0, 0}, src)
	if !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("expected ErrInvalidDistribution, got %v", err)
	}
	if src.calls != MaxAttempts {
		t.Fatalf("expected %d draws, got %d", MaxAttempts, src.calls)
	}
	var ide *InvalidDistributionError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InvalidDistributionError, got %T", err)
	}
	// The tenth draw replays index 0 of the script.
	if ide.Draw != 0.3 || ide.Sum != 0 {
		t.Fatalf("unexpected error detail: d=%v sum=%v", ide.Draw, ide.Sum)
	}
}

func TestArgmax(t *testing.T) {
	if got := Argmax([]float64{0.1, 0.7, 0.2}); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := Argmax([]float64{0.5, 0.5}); got != 0 {
		t.Fatalf("ties resolve to the first index, got %d", got)
	}
}

func TestTemperature(t *testing.T) {
	dist := []float64{0.2, 0.8, 0}
	Temperature(dist, 1)
	if dist[0] != 0.2 || dist[1] != 0.8 {
		t.Fatalf("t=1 must not change the distribution: %v", dist)
	}

	cold := []float64{0.2, 0.8, 0}
	Temperature(cold, 0.5)
	// 0.2^2 : 0.8^2 = 0.04 : 0.64
	if math.Abs(cold[0]-0.04/0.68) > 1e-9 || math.Abs(cold[1]-0.64/0.68) > 1e-9 || cold[2] != 0 {
		t.Fatalf("unexpected cold distribution: %v", cold)
	}

	hot := []float64{0.2, 0.8}
	Temperature(hot, 1e6)
	if math.Abs(hot[0]-0.5) > 1e-3 {
		t.Fatalf("very high temperature should flatten the distribution: %v", hot)
	}

	var sum float64
	for _, p := range cold {
		sum += p
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("expected normalised output, sum=%v", sum)
	}
}
