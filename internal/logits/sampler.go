package logits

import (
	"errors"
	"fmt"
	"math"
)

// MaxAttempts bounds the number of uniform draws Sample makes before it
// rejects a distribution.
const MaxAttempts = 10

var ErrInvalidDistribution = errors.New("invalid distribution")

// InvalidDistributionError carries the last draw and the last cumulative sum
// seen before Sample gave up.
type InvalidDistributionError struct {
	Draw float64
	Sum  float64
}

func (e *InvalidDistributionError) Error() string {
	return fmt.Sprintf("distribution is invalid? d=%v, sum=%v", e.Draw, e.Sum)
}

func (e *InvalidDistributionError) Unwrap() error { return ErrInvalidDistribution }

// Source is a uniform [0,1) random stream. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Sample draws a class index from dist by inverse-CDF sampling.
//
// A draw d is compared against the running sum of dist; the first index whose
// cumulative mass reaches d wins. When the mass sums to slightly less than 1
// a draw can fall past the end, in which case d is redrawn, at most
// MaxAttempts times in total. Classes with zero mass are never selected, even
// for d == 0.
func Sample(dist []float64, rng Source) (int, error) {
	var d, sum float64
	for range MaxAttempts {
		d = rng.Float64()
		sum = 0
		for i, p := range dist {
			sum += p
			if p > 0 && d <= sum {
				return i, nil
			}
		}
	}
	return -1, &InvalidDistributionError{Draw: d, Sum: sum}
}

// Argmax returns the index of the largest probability. If the slice is empty it panics.
func Argmax(dist []float64) int {
	if len(dist) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := dist[0]
	for i := 1; i < len(dist); i++ {
		if dist[i] > bestV {
			bestV = dist[i]
			bestI = i
		}
	}
	return bestI
}

// Temperature reweights dist in place as p^(1/t) and renormalises it.
// t == 1 (or t <= 0) leaves dist untouched.
func Temperature(dist []float64, t float64) {
	if t <= 0 || t == 1 || len(dist) == 0 {
		return
	}
	inv := 1.0 / t
	// Work in log space so a small t does not underflow every entry to zero.
	maxv := math.Inf(-1)
	for i, p := range dist {
		if p <= 0 {
			dist[i] = math.Inf(-1)
			continue
		}
		dist[i] = math.Log(p) * inv
		maxv = math.Max(maxv, dist[i])
	}
	if math.IsInf(maxv, -1) {
		for i := range dist {
			dist[i] = 0
		}
		return
	}
	var sum float64
	for i, v := range dist {
		dist[i] = math.Exp(v - maxv)
		sum += dist[i]
	}
	for i := range dist {
		dist[i] /= sum
	}
}
