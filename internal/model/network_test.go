package model

import (
	"errors"
	"math"
	"testing"
)

func tinyNet(t *testing.T) *Network {
	t.Helper()
	n, err := New(Config{InputSize: 5, HiddenSize: 4, Layers: 2, OutputSize: 5, Seed: 3})
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	return n
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	bad := []Config{
		{InputSize: 0, HiddenSize: 1, Layers: 1, OutputSize: 1},
		{InputSize: 1, HiddenSize: 0, Layers: 1, OutputSize: 1},
		{InputSize: 1, HiddenSize: 1, Layers: 0, OutputSize: 1},
		{InputSize: 1, HiddenSize: 1, Layers: 1, OutputSize: 0},
	}
	for _, c := range bad {
		if _, err := New(c); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New(%+v): expected ErrInvalidConfig, got %v", c, err)
		}
	}
}

func TestParamCounts(t *testing.T) {
	t.Parallel()
	n, err := New(Config{InputSize: 77, HiddenSize: 200, Layers: 2, OutputSize: 77, Seed: 12345})
	if err != nil {
		t.Fatal(err)
	}
	counts := n.LayerParams()
	want := []int{
		4*200*77 + 4*200*200 + 4*200,
		4*200*200 + 4*200*200 + 4*200,
		77*200 + 77,
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("layer %d: got %d params want %d", i, counts[i], want[i])
		}
	}
	if n.NumParams() != want[0]+want[1]+want[2] {
		t.Fatalf("total mismatch: %d", n.NumParams())
	}
}

func TestStepOutputsDistributions(t *testing.T) {
	t.Parallel()
	n := tinyNet(t)
	st := n.NewState(3)
	next, outs, err := n.Step(st, []Batch{OneHot([]int{0, 1, 2}, 5), OneHot([]int{4, 3, 2}, 5)})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(outs) != 2 || len(outs[1]) != 3 {
		t.Fatalf("unexpected output shape %d x %d", len(outs), len(outs[1]))
	}
	for _, out := range outs {
		for _, p := range out {
			var sum float64
			for _, v := range p {
				if v < 0 {
					t.Fatalf("negative probability %v", v)
				}
				sum += float64(v)
			}
			if math.Abs(sum-1) > 1e-5 {
				t.Fatalf("distribution sums to %v", sum)
			}
		}
	}
	if next == st {
		t.Fatal("Step must return a new state")
	}
	for _, v := range st.Hidden(0, 0) {
		if v != 0 {
			t.Fatal("Step mutated the input state")
		}
	}
}

func TestStepMultiEqualsSequential(t *testing.T) {
	t.Parallel()
	n := tinyNet(t)
	seq := []Batch{OneHot([]int{1}, 5), OneHot([]int{2}, 5), OneHot([]int{3}, 5)}

	_, all, err := n.Step(n.NewState(1), seq)
	if err != nil {
		t.Fatal(err)
	}
	st := n.NewState(1)
	var last []Batch
	for _, b := range seq {
		st, last, err = n.Step(st, []Batch{b})
		if err != nil {
			t.Fatal(err)
		}
	}
	for k := range all[2][0] {
		if all[2][0][k] != last[0][0][k] {
			t.Fatalf("class %d: multi-step %v vs sequential %v", k, all[2][0][k], last[0][0][k])
		}
	}
}

func TestStepShapeErrors(t *testing.T) {
	t.Parallel()
	n := tinyNet(t)
	st := n.NewState(2)
	cases := map[string][]Batch{
		"no steps":    nil,
		"wrong batch": {OneHot([]int{0}, 5)},
		"wrong width": {OneHot([]int{0, 1}, 4)},
	}
	for name, in := range cases {
		if _, _, err := n.Step(st, in); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("%s: expected ErrShapeMismatch, got %v", name, err)
		}
	}
	other, _ := New(Config{InputSize: 5, HiddenSize: 3, Layers: 1, OutputSize: 5})
	if _, _, err := n.Step(other.NewState(2), []Batch{OneHot([]int{0, 1}, 5)}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("foreign state: expected ErrShapeMismatch, got %v", err)
	}
}

// TestGradientMatchesFiniteDifference compares the analytic gradient of every
// parameter against a central finite difference of Loss.
func TestGradientMatchesFiniteDifference(t *testing.T) {
	n := tinyNet(t)
	inputs := [][]int{{0, 1, 2}, {3, 4, 0}}
	labels := [][]int{{1, 2, 3}, {4, 0, 1}}

	// Start from a non-zero state so the recurrent path is exercised.
	st, _, err := n.Step(n.NewState(2), []Batch{OneHot([]int{2, 3}, 5)})
	if err != nil {
		t.Fatal(err)
	}

	loss, _, err := n.Gradient(st, inputs, labels)
	if err != nil {
		t.Fatalf("gradient: %v", err)
	}
	ref, err := n.Loss(st, inputs, labels)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss-ref) > 1e-5 {
		t.Fatalf("Gradient loss %v != Loss %v", loss, ref)
	}

	const eps = 1e-2
	for _, p := range n.Params() {
		for i := range p.Value.Data {
			orig := p.Value.Data[i]
			p.Value.Data[i] = orig + eps
			lp, _ := n.Loss(st, inputs, labels)
			p.Value.Data[i] = orig - eps
			lm, _ := n.Loss(st, inputs, labels)
			p.Value.Data[i] = orig

			numeric := (lp - lm) / (2 * eps)
			analytic := float64(p.Grad.Data[i])
			if math.Abs(numeric-analytic) > 1e-3+5e-2*math.Abs(numeric) {
				t.Fatalf("%s[%d]: analytic %v numeric %v", p.Name, i, analytic, numeric)
			}
		}
	}
}

func TestGradientRejectsBadIndices(t *testing.T) {
	t.Parallel()
	n := tinyNet(t)
	st := n.NewState(1)
	if _, _, err := n.Gradient(st, [][]int{{9}}, [][]int{{0}}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if _, _, err := n.Gradient(st, [][]int{{0, 1}}, [][]int{{0}}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for ragged labels, got %v", err)
	}
}

func TestParamLookup(t *testing.T) {
	t.Parallel()
	n := tinyNet(t)
	p, err := n.Param("lstm.1.U")
	if err != nil {
		t.Fatal(err)
	}
	if p.Value.R != 16 || p.Value.C != 4 {
		t.Fatalf("unexpected shape %dx%d", p.Value.R, p.Value.C)
	}
	if _, err := n.Param("nope"); !errors.Is(err, ErrParamNotFound) {
		t.Fatalf("expected ErrParamNotFound, got %v", err)
	}
}
