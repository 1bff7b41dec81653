package accel

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Kernel names understood by RunKernel.
const (
	KernelBG4Encode   = "bg4.encode"
	KernelBG4Decode   = "bg4.decode"
	KernelDeltaEncode = "delta.encode"
	KernelDeltaDecode = "delta.decode"
)

var (
	ErrAcceleratorUnavailable = errors.New("no accelerator available")
	ErrUnknownKernel          = errors.New("unknown kernel")
	ErrLayout                 = errors.New("invalid probability layout")
	ErrUnknownBackend         = errors.New("unknown accelerator backend")
)

// Accelerator is the capability the codecs depend on.
//
// MixProbabilities takes modelProbs and weights laid out as
// [numModels][numBits] flattened row by row, so entry m*numBits+b holds
// model m's prediction for bit b. Both slices must have the same
// non-zero length, a multiple of numBits. The result has numBits
// probabilities in (0, 1).
type Accelerator interface {
	Name() string
	RunKernel(kernel string, data []byte) error
	MixProbabilities(modelProbs, weights []float32, numBits int) ([]float32, error)
}

// Backend selects which accelerator discovery may return.
type Backend int

const (
	BackendAuto Backend = iota
	BackendCUDA
	BackendVulkan
	BackendSoftware
	BackendNone
)

// String returns the configuration name of a backend.
func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendCUDA:
		return "cuda"
	case BackendVulkan:
		return "vulkan"
	case BackendSoftware:
		return "software"
	case BackendNone:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", int(b))
	}
}

// ParseBackend parses a backend from its configuration name.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return BackendAuto, nil
	case "cuda":
		return BackendCUDA, nil
	case "vulkan":
		return BackendVulkan, nil
	case "software", "cpu":
		return BackendSoftware, nil
	case "none":
		return BackendNone, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Prober tries to bring up one kind of accelerator.
type Prober interface {
	Backend() Backend
	Probe() (Accelerator, error)
}

// Discover runs probers in order and returns the first accelerator that
// comes up. When none does, the error wraps ErrAcceleratorUnavailable and
// every prober's reason.
func Discover(probers ...Prober) (Accelerator, error) {
	var reasons []error
	for _, p := range probers {
		a, err := p.Probe()
		if err == nil && a != nil {
			return a, nil
		}
		if err == nil {
			err = errors.New("prober returned no accelerator")
		}
		reasons = append(reasons, fmt.Errorf("%s: %w", p.Backend(), err))
	}
	if len(reasons) == 0 {
		return nil, ErrAcceleratorUnavailable
	}
	return nil, fmt.Errorf("%w: %w", ErrAcceleratorUnavailable, errors.Join(reasons...))
}

// ProbersFor returns the probe order for a backend preference.
func ProbersFor(b Backend) []Prober {
	switch b {
	case BackendCUDA:
		return []Prober{NewCUDAProber()}
	case BackendVulkan:
		return []Prober{NewVulkanProber()}
	case BackendSoftware:
		return []Prober{SoftwareProber{}}
	case BackendNone:
		return nil
	default:
		return []Prober{NewCUDAProber(), NewVulkanProber(), SoftwareProber{}}
	}
}

var (
	sharedOnce sync.Once
	shared     Accelerator
	sharedErr  error
)

// Shared discovers an accelerator for the given preference on first use
// and returns that same result on every later call, whatever the
// preference passed then.
func Shared(b Backend) (Accelerator, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = Discover(ProbersFor(b)...)
	})
	return shared, sharedErr
}
