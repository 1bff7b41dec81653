package accel

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// mixChunk is the smallest number of bits handed to one worker.
const mixChunk = 4096

// probability clamp applied before stretch
const (
	minProb = 1.0 / 4096
	maxProb = 1 - minProb
)

// Software implements Accelerator on the CPU.
type Software struct {
	workers int
}

// NewSoftware returns a software accelerator using GOMAXPROCS workers.
func NewSoftware() *Software {
	return &Software{workers: runtime.GOMAXPROCS(0)}
}

func (s *Software) Name() string {
	return fmt.Sprintf("software (%d workers)", s.workers)
}

// RunKernel applies a named transform to data in place.
func (s *Software) RunKernel(kernel string, data []byte) error {
	switch kernel {
	case KernelBG4Encode:
		bg4InPlace(data, bg4Transpose)
	case KernelBG4Decode:
		bg4InPlace(data, bg4Untranspose)
	case KernelDeltaEncode:
		deltaEncode(data)
	case KernelDeltaDecode:
		deltaDecode(data)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKernel, kernel)
	}
	return nil
}

// Larger scratch buffers are dropped rather than pooled.
const maxPooledScratch = 64 << 20

var bg4Scratch = sync.Pool{New: func() any { return new([]byte) }}

// bg4InPlace runs a plane transform over the whole 4-byte words of data
// through a pooled scratch buffer. A trailing partial word stays put.
func bg4InPlace(data []byte, transform func(dst, src []byte)) {
	n := len(data) &^ 3
	if n == 0 {
		return
	}
	buf := bg4Scratch.Get().(*[]byte)
	if cap(*buf) < n {
		*buf = make([]byte, n)
	}
	scratch := (*buf)[:n]
	transform(scratch, data[:n])
	copy(data, scratch)
	if cap(*buf) <= maxPooledScratch {
		bg4Scratch.Put(buf)
	}
}

// MixProbabilities computes squash(sum over m of w[m][b]*stretch(p[m][b]))
// for every bit b. Bits are independent, so large batches are split
// across workers; the summation order per bit is fixed, which keeps the
// result identical however the batch is split.
func (s *Software) MixProbabilities(modelProbs, weights []float32, numBits int) ([]float32, error) {
	if numBits <= 0 || len(modelProbs) == 0 || len(modelProbs)%numBits != 0 {
		return nil, fmt.Errorf("%w: %d probabilities for %d bits", ErrLayout, len(modelProbs), numBits)
	}
	if len(weights) != len(modelProbs) {
		return nil, fmt.Errorf("%w: %d weights for %d probabilities", ErrLayout, len(weights), len(modelProbs))
	}

	numModels := len(modelProbs) / numBits
	out := make([]float32, numBits)

	if numBits < 2*mixChunk || s.workers < 2 {
		mixRange(out, modelProbs, weights, numModels, numBits, 0, numBits)
		return out, nil
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for start := 0; start < numBits; start += mixChunk {
		end := min(start+mixChunk, numBits)
		g.Go(func() error {
			mixRange(out, modelProbs, weights, numModels, numBits, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func mixRange(out, probs, weights []float32, numModels, numBits, start, end int) {
	for b := start; b < end; b++ {
		var dot float32
		for m := 0; m < numModels; m++ {
			i := m*numBits + b
			dot = float32(dot + float32(weights[i]*Stretch(probs[i])))
		}
		out[b] = Squash(dot)
	}
}

// Stretch is the logit ln(p/(1-p)), with p clamped away from 0 and 1.
func Stretch(p float32) float32 {
	if p < minProb {
		p = minProb
	} else if p > maxProb {
		p = maxProb
	}
	return float32(math.Log(float64(p) / float64(1-p)))
}

// Squash is the logistic function 1/(1+e^-x), kept inside (0, 1).
func Squash(x float32) float32 {
	p := float32(1 / (1 + math.Exp(-float64(x))))
	if p < minProb {
		return minProb
	}
	if p > maxProb {
		return maxProb
	}
	return p
}

// SoftwareProber always succeeds.
type SoftwareProber struct{}

func (SoftwareProber) Backend() Backend { return BackendSoftware }

func (SoftwareProber) Probe() (Accelerator, error) {
	return NewSoftware(), nil
}
