package tensor

import (
	"math"
	"math/rand"
	"testing"
)

func matVecNaive(dst []float32, w *Mat, x []float32) {
	for i := 0; i < w.R; i++ {
		row := w.Data[i*w.Stride : i*w.Stride+w.C]
		var sum float32
		for j := 0; j < w.C; j++ {
			sum += row[j] * x[j]
		}
		dst[i] = sum
	}
}

func randVec(n int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float32, n)
	for i := range out {
		out[i] = rng.Float32()*2 - 1
	}
	return out
}

func closeEnough(a, b float32) bool {
	return math.Abs(float64(a-b)) <= 1e-4*(1+math.Abs(float64(b)))
}

func TestMatVecMatchesNaive(t *testing.T) {
	for _, shape := range [][2]int{{1, 1}, {3, 7}, {17, 5}, {512, 300}} {
		w := NewMat(shape[0], shape[1])
		FillRand(&w, 3)
		x := randVec(shape[1], 4)
		got := make([]float32, shape[0])
		want := make([]float32, shape[0])
		MatVec(got, &w, x)
		matVecNaive(want, &w, x)
		for i := range want {
			if !closeEnough(got[i], want[i]) {
				t.Fatalf("shape %v row %d: got %f want %f", shape, i, got[i], want[i])
			}
		}
	}
}

func TestMatTVecAdd(t *testing.T) {
	w := NewMat(2, 3)
	copy(w.Data, []float32{1, 2, 3, 4, 5, 6})
	dst := []float32{1, 1, 1}
	MatTVecAdd(dst, &w, []float32{1, -1})
	want := []float32{1 - 3, 1 - 3, 1 - 3}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, dst[i], want[i])
		}
	}
}

func TestOuterAdd(t *testing.T) {
	w := NewMat(2, 2)
	OuterAdd(&w, []float32{1, 2}, []float32{3, 4})
	want := []float32{3, 4, 6, 8}
	for i := range want {
		if w.Data[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, w.Data[i], want[i])
		}
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	x := []float32{1, 2, 3, 1000}
	Softmax(x)
	var sum float32
	for _, v := range x {
		sum += v
	}
	if !closeEnough(sum, 1) {
		t.Fatalf("softmax sum = %v", sum)
	}
	if Argmax(x) != 3 {
		t.Fatalf("expected largest logit to dominate, got %v", x)
	}
}

func TestFillXavierRange(t *testing.T) {
	w := NewMat(20, 30)
	FillXavier(&w, 30, 20, rand.New(rand.NewSource(1)))
	limit := float32(math.Sqrt(6.0 / 50.0))
	for _, v := range w.Data {
		if v < -limit || v > limit {
			t.Fatalf("value %v outside ±%v", v, limit)
		}
	}
}

func TestNewMatFromDataMismatch(t *testing.T) {
	if _, err := NewMatFromData(2, 2, make([]float32, 3)); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func BenchmarkMatVec(b *testing.B) {
	w := NewMat(800, 277)
	FillRand(&w, 1)
	x := randVec(277, 2)
	dst := make([]float32, 800)
	for b.Loop() {
		MatVec(dst, &w, x)
	}
}
