package cmd

import (
	"fmt"

	"github.com/Murchiz/Gpucompress/internal/accel"
)

type deviceLister interface {
	Devices() []accel.Device
}

// Accel reports the GPUs found on this machine and which accelerator
// the configured backend resolves to.
func Accel(env *Env) {
	backend := env.Config.Backend()
	fmt.Printf("Configured backend: %s\n", backend)

	fmt.Println("\nDevices:")
	found := 0
	for _, p := range accel.ProbersFor(accel.BackendAuto) {
		lister, ok := p.(deviceLister)
		if !ok {
			continue
		}
		for _, d := range lister.Devices() {
			fmt.Printf("  [%s] %s\n", p.Backend(), d)
			found++
		}
	}
	if found == 0 {
		fmt.Println("  none")
	}

	fmt.Println("\nProbes:")
	for _, p := range accel.ProbersFor(backend) {
		if _, err := p.Probe(); err != nil {
			fmt.Printf("  %-8s unavailable: %v\n", p.Backend(), err)
		} else {
			fmt.Printf("  %-8s ok\n", p.Backend())
		}
	}

	if acc := env.Accelerator(); acc != nil {
		fmt.Printf("\nAccelerator: %s\n", acc.Name())
	} else {
		fmt.Println("\nAccelerator: none (lat and paqg are unavailable)")
	}
}
