package formats

import (
	"github.com/Murchiz/Gpucompress/internal/accel"
)

const (
	numModels    = 3
	order2Bits   = 18
	learningRate = float32(0.02)
	initWeight   = float32(0.3)
)

// lane holds the context models and mixer weights for one independent
// slice of the payload.
type lane struct {
	t0 [256]uint16
	t1 []uint16
	t2 []uint16
	w  [numModels]float32

	c0     uint32 // bits of the current byte seen so far, with a leading 1
	c1, c2 byte   // previous two bytes
	h2     uint32
	slot   [numModels]int
}

func newLane() *lane {
	l := &lane{
		t1: make([]uint16, 1<<16),
		t2: make([]uint16, 1<<order2Bits),
		c0: 1,
	}
	for i := range l.t0 {
		l.t0[i] = 2048
	}
	for i := range l.t1 {
		l.t1[i] = 2048
	}
	for i := range l.t2 {
		l.t2[i] = 2048
	}
	for m := range l.w {
		l.w[m] = initWeight
	}
	l.setSlots()
	return l
}

func (l *lane) setSlots() {
	l.slot[0] = int(l.c0)
	l.slot[1] = int(l.c1)<<8 | int(l.c0)
	l.slot[2] = int((l.h2 ^ l.c0*0x9E3779B1) >> (32 - order2Bits))
}

func (l *lane) counter(m int) *uint16 {
	switch m {
	case 0:
		return &l.t0[l.slot[0]]
	case 1:
		return &l.t1[l.slot[1]]
	default:
		return &l.t2[l.slot[2]]
	}
}

// load writes this lane's predictions and weights into column j of the
// [numModels][stride] batch.
func (l *lane) load(probs, weights []float32, stride, j int) {
	for m := 0; m < numModels; m++ {
		probs[m*stride+j] = float32(*l.counter(m)) / 4096
		weights[m*stride+j] = l.w[m]
	}
}

// update trains the mixer and counters on bit and advances the context.
func (l *lane) update(bit int, mixed float32, probs []float32, stride, j int) {
	err := float32(bit) - mixed
	for m := 0; m < numModels; m++ {
		l.w[m] = float32(l.w[m] + float32(learningRate*err*accel.Stretch(probs[m*stride+j])))

		p := l.counter(m)
		if bit != 0 {
			*p += (4096 - *p) >> 4
		} else {
			*p -= *p >> 4
		}
	}

	l.c0 = l.c0<<1 | uint32(bit)
	if l.c0 >= 256 {
		l.c2 = l.c1
		l.c1 = byte(l.c0)
		l.c0 = 1
		l.h2 = (uint32(l.c2)<<8 | uint32(l.c1)) * 2654435761
	}
	l.setSlots()
}

// mixer runs all active lanes through one MixProbabilities call per bit.
type mixer struct {
	acc     accel.Accelerator
	lanes   []*lane
	probs   []float32
	weights []float32
}

func newMixer(acc accel.Accelerator, n int) *mixer {
	m := &mixer{
		acc:     acc,
		lanes:   make([]*lane, n),
		probs:   make([]float32, numModels*n),
		weights: make([]float32, numModels*n),
	}
	for i := range m.lanes {
		m.lanes[i] = newLane()
	}
	return m
}

// predict returns the mixed probability for each lane in active, in order.
func (m *mixer) predict(active []int) ([]float32, error) {
	n := len(active)
	probs := m.probs[:numModels*n]
	weights := m.weights[:numModels*n]
	for j, li := range active {
		m.lanes[li].load(probs, weights, n, j)
	}
	return m.acc.MixProbabilities(probs, weights, n)
}

func (m *mixer) update(active []int, bits []int, mixed []float32) {
	n := len(active)
	probs := m.probs[:numModels*n]
	for j, li := range active {
		m.lanes[li].update(bits[j], mixed[j], probs, n, j)
	}
}

func toP12(p float32) uint32 {
	v := int(p * 4096)
	return uint32(max(1, min(v, 4095)))
}
