// Package analysis measures how evenly a set of dots covers the plane.
//
// Two views are provided:
//
//   - [RadialSpectrum]: radially averaged power spectrum of the binned dot
//     density. Uniform random dots give a flat spectrum near 1; blue noise
//     pushes power out of the low frequencies.
//   - [NearestNeighbor]: mean nearest-neighbor distance and its coefficient
//     of variation. Well spaced dots have a small coefficient.
//
// # Usage
//
//	spec, err := analysis.RadialSpectrum(positions, 64)
//	if err != nil {
//	    return err
//	}
//	low := analysis.LowFrequencyPower(spec, 4)
package analysis
