// Package sim advances the particle state one timestep at a time.
//
// A timestep is three compute passes issued in order:
//
//   - acceleration: pairwise repulsion plus attraction to the field,
//     written into the inactive acceleration slot
//   - velocity: damped half-step update from the previous and new
//     accelerations, capped at [Params.VMax]
//   - position: displacement from the new velocity and acceleration,
//     capped at [Params.MaxDisplacement]
//
// after which the acceleration slots swap. Each pass writes a buffer that no
// pass reads until it has been committed.
//
// # Example
//
//	params, _ := sim.NewParams(sim.Params{Dt: 0.1, MaxDisplacement: 0.01, ...})
//	store, _ := particles.New(64, params.Codecs())
//	_ = store.Initialize(4000, 1)
//	st, _ := sim.NewStepper(params, store, compute.NewCPUBackend())
//	st.SetField(f)
//	err := st.Step(ctx, 100)
//
// # Thread Safety
//
// Stepper instances are NOT thread-safe. Read the store only between calls
// to Step.
package sim
