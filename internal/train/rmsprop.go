package train

import (
	"math"

	"github.com/samcharles93/charrnn/internal/model"
)

// RMSProp scales every update by a running average of squared gradients.
// L2 is added to the gradient of weight matrices before the update.
type RMSProp struct {
	Params []model.Param
	LR     float64
	Decay  float64
	Eps    float64
	L2     float64
	Clip   float64

	cache [][]float32
}

func NewRMSProp(params []model.Param, cfg Config) *RMSProp {
	cache := make([][]float32, len(params))
	for i, p := range params {
		cache[i] = make([]float32, len(p.Value.Data))
	}
	return &RMSProp{
		Params: params,
		LR:     cfg.LearningRate,
		Decay:  cfg.RMSDecay,
		Eps:    cfg.RMSEpsilon,
		L2:     cfg.L2,
		Clip:   cfg.GradClip,
		cache:  cache,
	}
}

// Step applies one update from the gradients currently held by Params.
func (opt *RMSProp) Step() {
	decay := float32(opt.Decay)
	clip := float32(opt.Clip)
	for i, p := range opt.Params {
		w := p.Value.Data
		g := p.Grad.Data
		cache := opt.cache[i]
		l2 := float32(0)
		if p.Decay {
			l2 = float32(opt.L2)
		}
		for j := range w {
			gj := g[j] + l2*w[j]
			if clip > 0 {
				gj = max(-clip, min(clip, gj))
			}
			cache[j] = decay*cache[j] + (1-decay)*gj*gj
			w[j] -= float32(opt.LR * float64(gj) / (math.Sqrt(float64(cache[j])) + opt.Eps))
		}
	}
}
