package model

// State is the recurrent memory of a Network for a fixed batch of samples.
// h and c are laid out per layer as batch contiguous rows of HiddenSize.
type State struct {
	batch  int
	hidden int
	h      [][]float32
	c      [][]float32
}

func newState(layers, hidden, batch int) *State {
	st := &State{
		batch:  batch,
		hidden: hidden,
		h:      make([][]float32, layers),
		c:      make([][]float32, layers),
	}
	for l := range layers {
		st.h[l] = make([]float32, batch*hidden)
		st.c[l] = make([]float32, batch*hidden)
	}
	return st
}

// Batch is the number of samples the state tracks.
func (s *State) Batch() int { return s.batch }

// Clone returns an independent copy of the state.
func (s *State) Clone() *State {
	out := &State{
		batch:  s.batch,
		hidden: s.hidden,
		h:      make([][]float32, len(s.h)),
		c:      make([][]float32, len(s.c)),
	}
	for l := range s.h {
		out.h[l] = append([]float32(nil), s.h[l]...)
		out.c[l] = append([]float32(nil), s.c[l]...)
	}
	return out
}

// Hidden returns the hidden activation of sample s at the given layer.
func (s *State) Hidden(layer, sample int) []float32 {
	return s.h[layer][sample*s.hidden : (sample+1)*s.hidden]
}

func (s *State) cell(layer, sample int) []float32 {
	return s.c[layer][sample*s.hidden : (sample+1)*s.hidden]
}
