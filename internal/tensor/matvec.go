package tensor

import (
	"runtime"
	"sync"
)

// parallelMinWork is the number of multiply-adds below which MatVec stays on
// the calling goroutine.
const parallelMinWork = 1 << 16

type matVecTask struct {
	dst    []float32
	w      *Mat
	x      []float32
	rs, re int
	done   chan struct{}
}

type matVecPool struct {
	size      int
	tasks     chan matVecTask
	doneSlots chan chan struct{}
}

var (
	matVecWorkPool *matVecPool
	matVecPoolOnce sync.Once
)

func getMatVecPool() *matVecPool {
	matVecPoolOnce.Do(func() {
		matVecWorkPool = newMatVecPool()
	})
	return matVecWorkPool
}

func newMatVecPool() *matVecPool {
	size := max(runtime.GOMAXPROCS(0), 1)
	p := &matVecPool{
		size:      size,
		tasks:     make(chan matVecTask, size*2),
		doneSlots: make(chan chan struct{}, size),
	}
	for range size {
		p.doneSlots <- make(chan struct{}, size)
	}
	for range size {
		go func() {
			for task := range p.tasks {
				matVecRange(task.dst, task.w, task.x, task.rs, task.re)
				task.done <- struct{}{}
			}
		}()
	}
	return p
}

// MatVec computes dst = w * x where w is a matrix and x is a vector.
// Large products are split by rows across a shared worker pool; every row is
// computed by exactly one worker, so results do not depend on scheduling.
func MatVec(dst []float32, w *Mat, x []float32) {
	if w.R == 0 {
		return
	}
	if len(dst) < w.R || len(x) < w.C {
		panic("matvec shape mismatch")
	}

	pool := getMatVecPool()
	workers := min(pool.size, w.R)
	if workers <= 1 || w.R*w.C < parallelMinWork {
		matVecRange(dst, w, x, 0, w.R)
		return
	}

	chunk := (w.R + workers - 1) / workers
	done := <-pool.doneSlots

	active := 0
	for i := range workers {
		rs := i * chunk
		re := min(rs+chunk, w.R)
		if rs >= re {
			break
		}
		active++
		pool.tasks <- matVecTask{dst: dst, w: w, x: x, rs: rs, re: re, done: done}
	}
	for range active {
		<-done
	}
	pool.doneSlots <- done
}

func matVecRange(dst []float32, w *Mat, x []float32, rs, re int) {
	for i := rs; i < re; i++ {
		row := w.Data[i*w.Stride : i*w.Stride+w.C]
		var sum float32
		j := 0
		for ; j+3 < w.C; j += 4 {
			sum += row[j]*x[j] + row[j+1]*x[j+1] + row[j+2]*x[j+2] + row[j+3]*x[j+3]
		}
		for ; j < w.C; j++ {
			sum += row[j] * x[j]
		}
		dst[i] = sum
	}
}

// MatVecAdd computes dst += w * x.
func MatVecAdd(dst []float32, w *Mat, x []float32) {
	if len(dst) < w.R || len(x) < w.C {
		panic("matvec shape mismatch")
	}
	for i := 0; i < w.R; i++ {
		dst[i] += Dot(w.Data[i*w.Stride:i*w.Stride+w.C], x[:w.C])
	}
}

// MatTVecAdd computes dst += wᵀ * x, i.e. dst[j] += Σᵢ w[i][j]·x[i].
func MatTVecAdd(dst []float32, w *Mat, x []float32) {
	if len(dst) < w.C || len(x) < w.R {
		panic("matvec shape mismatch")
	}
	for i := 0; i < w.R; i++ {
		xi := x[i]
		if xi == 0 {
			continue
		}
		Axpy(dst[:w.C], xi, w.Data[i*w.Stride:i*w.Stride+w.C])
	}
}

// OuterAdd accumulates the outer product a·bᵀ into w.
func OuterAdd(w *Mat, a, b []float32) {
	if len(a) < w.R || len(b) < w.C {
		panic("outer product shape mismatch")
	}
	for i := 0; i < w.R; i++ {
		ai := a[i]
		if ai == 0 {
			continue
		}
		Axpy(w.Data[i*w.Stride:i*w.Stride+w.C], ai, b[:w.C])
	}
}
