// Package accel provides the optional accelerator used by the lat and
// paqg codecs.
//
// An Accelerator exposes two operations:
//   - RunKernel: an in-place byte transform selected by name
//   - MixProbabilities: logistic mixing of per-model bit predictions
//
// Backends:
//   - cuda: NVIDIA devices found under /sys/class/drm
//   - vulkan: AMD and Intel devices found under /sys/class/drm
//   - software: multi-core CPU implementation, always available
//   - none: no accelerator
//
// This build links no GPU compute runtime, so the cuda and vulkan probers
// report the devices they find and then decline. Discovery falls through
// to the software backend unless a specific backend was requested.
//
// Shared runs discovery once per process; every caller gets the same
// instance, and a nil accelerator is a valid result.
package accel
