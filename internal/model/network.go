package model

import (
	"fmt"
	"math/rand"

	"github.com/samcharles93/charrnn/internal/tensor"
)

// Gate blocks are stacked in this order inside W, U and B.
const (
	gateInput = iota
	gateForget
	gateOutput
	gateCell
	numGates
)

// Param is a named trainable tensor with its gradient accumulator.
// Biases are stored as 1×n matrices.
type Param struct {
	Name  string
	Value *tensor.Mat
	Grad  *tensor.Mat
	// Decay reports whether weight decay applies (weights yes, biases no).
	Decay bool
}

type lstmLayer struct {
	in, hidden int
	W          tensor.Mat // [4H x in]
	U          tensor.Mat // [4H x H]
	B          tensor.Mat // [1 x 4H]
	gW, gU, gB tensor.Mat
}

type outputLayer struct {
	W      tensor.Mat // [out x H]
	B      tensor.Mat // [1 x out]
	gW, gB tensor.Mat
}

// Network is a stack of LSTM layers with a softmax output layer.
type Network struct {
	cfg    Config
	layers []*lstmLayer
	out    outputLayer
	params []Param
}

// New allocates a network and initialises its weights with Xavier-uniform
// values drawn from cfg.Seed. Forget-gate biases start at 1.
func New(cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := &Network{cfg: cfg}

	in := cfg.InputSize
	h := cfg.HiddenSize
	for range cfg.Layers {
		l := &lstmLayer{
			in:     in,
			hidden: h,
			W:      tensor.NewMat(numGates*h, in),
			U:      tensor.NewMat(numGates*h, h),
			B:      tensor.NewMat(1, numGates*h),
			gW:     tensor.NewMat(numGates*h, in),
			gU:     tensor.NewMat(numGates*h, h),
			gB:     tensor.NewMat(1, numGates*h),
		}
		tensor.FillXavier(&l.W, in, h, rng)
		tensor.FillXavier(&l.U, h, h, rng)
		forget := l.B.Data[gateForget*h : (gateForget+1)*h]
		for i := range forget {
			forget[i] = 1
		}
		n.layers = append(n.layers, l)
		in = h
	}
	n.out = outputLayer{
		W:  tensor.NewMat(cfg.OutputSize, h),
		B:  tensor.NewMat(1, cfg.OutputSize),
		gW: tensor.NewMat(cfg.OutputSize, h),
		gB: tensor.NewMat(1, cfg.OutputSize),
	}
	tensor.FillXavier(&n.out.W, h, cfg.OutputSize, rng)

	for i, l := range n.layers {
		n.params = append(n.params,
			Param{Name: fmt.Sprintf("lstm.%d.W", i), Value: &l.W, Grad: &l.gW, Decay: true},
			Param{Name: fmt.Sprintf("lstm.%d.U", i), Value: &l.U, Grad: &l.gU, Decay: true},
			Param{Name: fmt.Sprintf("lstm.%d.b", i), Value: &l.B, Grad: &l.gB},
		)
	}
	n.params = append(n.params,
		Param{Name: "output.W", Value: &n.out.W, Grad: &n.out.gW, Decay: true},
		Param{Name: "output.b", Value: &n.out.B, Grad: &n.out.gB},
	)
	return n, nil
}

func (n *Network) Config() Config { return n.cfg }

// OutputSize is the number of classes in every output distribution.
func (n *Network) OutputSize() int { return n.cfg.OutputSize }

// Params returns the trainable tensors in a stable order.
func (n *Network) Params() []Param { return n.params }

// Param looks up a parameter by name.
func (n *Network) Param(name string) (Param, error) {
	for _, p := range n.params {
		if p.Name == name {
			return p, nil
		}
	}
	return Param{}, fmt.Errorf("%w: %s", ErrParamNotFound, name)
}

// NumParams is the total number of trainable scalars.
func (n *Network) NumParams() int {
	total := 0
	for _, c := range n.LayerParams() {
		total += c
	}
	return total
}

// LayerParams returns the parameter count of every layer, output layer last.
func (n *Network) LayerParams() []int {
	out := make([]int, 0, len(n.layers)+1)
	for _, l := range n.layers {
		out = append(out, len(l.W.Data)+len(l.U.Data)+len(l.B.Data))
	}
	return append(out, len(n.out.W.Data)+len(n.out.B.Data))
}

// NewState returns a cleared recurrent state for batch samples.
func (n *Network) NewState(batch int) *State {
	return newState(n.cfg.Layers, n.cfg.HiddenSize, batch)
}

// Step advances st by len(inputs) time steps and returns the advanced state
// together with the output distribution of every step. st itself is left
// untouched.
func (n *Network) Step(st *State, inputs []Batch) (*State, []Batch, error) {
	if st == nil {
		return nil, nil, fmt.Errorf("%w: nil state", ErrShapeMismatch)
	}
	if len(inputs) == 0 {
		return nil, nil, fmt.Errorf("%w: no time steps", ErrShapeMismatch)
	}
	if st.hidden != n.cfg.HiddenSize || len(st.h) != n.cfg.Layers {
		return nil, nil, fmt.Errorf("%w: state does not belong to this network", ErrShapeMismatch)
	}
	for t, b := range inputs {
		if len(b) != st.batch {
			return nil, nil, fmt.Errorf("%w: step %d has %d rows, state has %d", ErrShapeMismatch, t, len(b), st.batch)
		}
		for s, row := range b {
			if len(row) != n.cfg.InputSize {
				return nil, nil, fmt.Errorf("%w: step %d sample %d has width %d, want %d", ErrShapeMismatch, t, s, len(row), n.cfg.InputSize)
			}
		}
	}

	next := st.Clone()
	gates := make([]float32, numGates*n.cfg.HiddenSize)
	outputs := make([]Batch, len(inputs))
	for t, b := range inputs {
		out := make(Batch, st.batch)
		for s := range st.batch {
			x := b[s]
			for li, l := range n.layers {
				h := next.Hidden(li, s)
				c := next.cell(li, s)
				l.forward(x, h, c, gates)
				x = h
			}
			out[s] = n.out.forward(x)
		}
		outputs[t] = out
	}
	return next, outputs, nil
}

// forward runs one cell update for a single sample. h and c hold the previous
// state on entry and the new state on return. gates receives the activated
// gate values [i f o g].
func (l *lstmLayer) forward(x, h, c, gates []float32) {
	H := l.hidden
	tensor.MatVec(gates, &l.W, x)
	tensor.MatVecAdd(gates, &l.U, h)
	tensor.Add(gates, l.B.Data)
	for k := 0; k < 3*H; k++ {
		gates[k] = tensor.Sigmoid(gates[k])
	}
	for k := 3 * H; k < 4*H; k++ {
		gates[k] = tensor.Tanh(gates[k])
	}
	ig := gates[gateInput*H : (gateInput+1)*H]
	fg := gates[gateForget*H : (gateForget+1)*H]
	og := gates[gateOutput*H : (gateOutput+1)*H]
	gg := gates[gateCell*H : (gateCell+1)*H]
	for k := range H {
		c[k] = fg[k]*c[k] + ig[k]*gg[k]
		h[k] = og[k] * tensor.Tanh(c[k])
	}
}

// forward returns a freshly allocated softmax distribution for hidden input h.
func (o *outputLayer) forward(h []float32) []float32 {
	y := make([]float32, o.W.R)
	tensor.MatVec(y, &o.W, h)
	tensor.Add(y, o.B.Data)
	tensor.Softmax(y)
	return y
}
