package model

import (
	"fmt"
	"math"

	"github.com/samcharles93/charrnn/internal/tensor"
)

// minProb keeps the cross-entropy finite when the model assigns zero
// probability to a label.
const minProb = 1e-12

type cellCache struct {
	x     []float32
	hPrev []float32
	cPrev []float32
	gates []float32
	c     []float32
	h     []float32
}

// ZeroGrad clears every gradient accumulator.
func (n *Network) ZeroGrad() {
	for _, p := range n.params {
		p.Grad.Zero()
	}
}

// Gradient runs a forward pass over one truncated segment starting from st,
// accumulates the gradient of the mean cross-entropy into the parameter
// gradients and returns the loss together with the state after the segment.
//
// inputs and labels are [batch][time] class indices. Gradients do not flow
// into st; that is the truncation point.
func (n *Network) Gradient(st *State, inputs, labels [][]int) (float64, *State, error) {
	T, err := n.checkSegment(st, inputs, labels)
	if err != nil {
		return 0, nil, err
	}
	B := st.batch
	H := n.cfg.HiddenSize
	L := len(n.layers)

	n.ZeroGrad()
	next := st.Clone()

	caches := make([][][]cellCache, T)
	probs := make([][][]float32, T)
	var loss float64
	for t := range T {
		caches[t] = make([][]cellCache, B)
		probs[t] = make([][]float32, B)
		for s := range B {
			x := make([]float32, n.cfg.InputSize)
			x[inputs[s][t]] = 1
			caches[t][s] = make([]cellCache, L)
			for li, l := range n.layers {
				h := next.Hidden(li, s)
				c := next.cell(li, s)
				cc := cellCache{
					x:     x,
					hPrev: append([]float32(nil), h...),
					cPrev: append([]float32(nil), c...),
					gates: make([]float32, numGates*H),
				}
				l.forward(x, h, c, cc.gates)
				cc.c = append([]float32(nil), c...)
				cc.h = append([]float32(nil), h...)
				caches[t][s][li] = cc
				x = cc.h
			}
			p := n.out.forward(x)
			probs[t][s] = p
			loss -= math.Log(math.Max(float64(p[labels[s][t]]), minProb))
		}
	}
	norm := 1 / float32(B*T)
	loss /= float64(B * T)

	dhNext := make([][][]float32, L)
	dcNext := make([][][]float32, L)
	for li := range L {
		dhNext[li] = make([][]float32, B)
		dcNext[li] = make([][]float32, B)
		for s := range B {
			dhNext[li][s] = make([]float32, H)
			dcNext[li][s] = make([]float32, H)
		}
	}

	dz := make([]float32, numGates*H)
	for t := T - 1; t >= 0; t-- {
		for s := range B {
			dy := append([]float32(nil), probs[t][s]...)
			dy[labels[s][t]] -= 1
			tensor.Scale(dy, norm)

			top := caches[t][s][L-1].h
			tensor.OuterAdd(&n.out.gW, dy, top)
			tensor.Add(n.out.gB.Data, dy)
			dh := make([]float32, H)
			tensor.MatTVecAdd(dh, &n.out.W, dy)

			for li := L - 1; li >= 0; li-- {
				l := n.layers[li]
				cc := &caches[t][s][li]
				tensor.Add(dh, dhNext[li][s])
				dc := dcNext[li][s]

				ig := cc.gates[gateInput*H : (gateInput+1)*H]
				fg := cc.gates[gateForget*H : (gateForget+1)*H]
				og := cc.gates[gateOutput*H : (gateOutput+1)*H]
				gg := cc.gates[gateCell*H : (gateCell+1)*H]
				for k := range H {
					tc := tensor.Tanh(cc.c[k])
					dck := dc[k] + dh[k]*og[k]*(1-tc*tc)
					do := dh[k] * tc
					di := dck * gg[k]
					dg := dck * ig[k]
					df := dck * cc.cPrev[k]
					dz[gateInput*H+k] = di * ig[k] * (1 - ig[k])
					dz[gateForget*H+k] = df * fg[k] * (1 - fg[k])
					dz[gateOutput*H+k] = do * og[k] * (1 - og[k])
					dz[gateCell*H+k] = dg * (1 - gg[k]*gg[k])
					dc[k] = dck * fg[k]
				}

				tensor.OuterAdd(&l.gW, dz, cc.x)
				tensor.OuterAdd(&l.gU, dz, cc.hPrev)
				tensor.Add(l.gB.Data, dz)

				dhPrev := dhNext[li][s]
				clear(dhPrev)
				tensor.MatTVecAdd(dhPrev, &l.U, dz)

				if li > 0 {
					dx := make([]float32, l.in)
					tensor.MatTVecAdd(dx, &l.W, dz)
					dh = dx
				}
			}
		}
	}
	return loss, next, nil
}

// Loss evaluates the mean cross-entropy of a segment without touching the
// gradients.
func (n *Network) Loss(st *State, inputs, labels [][]int) (float64, error) {
	T, err := n.checkSegment(st, inputs, labels)
	if err != nil {
		return 0, err
	}
	steps := make([]Batch, T)
	for t := range T {
		idx := make([]int, st.batch)
		for s := range st.batch {
			idx[s] = inputs[s][t]
		}
		steps[t] = OneHot(idx, n.cfg.InputSize)
	}
	_, outs, err := n.Step(st, steps)
	if err != nil {
		return 0, err
	}
	var loss float64
	for t, out := range outs {
		for s, p := range out {
			loss -= math.Log(math.Max(float64(p[labels[s][t]]), minProb))
		}
	}
	return loss / float64(st.batch*T), nil
}

func (n *Network) checkSegment(st *State, inputs, labels [][]int) (int, error) {
	if st == nil {
		return 0, fmt.Errorf("%w: nil state", ErrShapeMismatch)
	}
	if len(inputs) != st.batch || len(labels) != st.batch {
		return 0, fmt.Errorf("%w: segment has %d/%d rows, state has %d", ErrShapeMismatch, len(inputs), len(labels), st.batch)
	}
	if st.batch == 0 || len(inputs[0]) == 0 {
		return 0, fmt.Errorf("%w: empty segment", ErrShapeMismatch)
	}
	T := len(inputs[0])
	for s := range st.batch {
		if len(inputs[s]) != T || len(labels[s]) != T {
			return 0, fmt.Errorf("%w: ragged segment at sample %d", ErrShapeMismatch, s)
		}
		for t := range T {
			if x := inputs[s][t]; x < 0 || x >= n.cfg.InputSize {
				return 0, fmt.Errorf("%w: input index %d", ErrShapeMismatch, x)
			}
			if y := labels[s][t]; y < 0 || y >= n.cfg.OutputSize {
				return 0, fmt.Errorf("%w: label index %d", ErrShapeMismatch, y)
			}
		}
	}
	return T, nil
}
