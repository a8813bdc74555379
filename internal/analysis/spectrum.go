package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrGridSize   = errors.New("analysis: grid must be at least 4 cells wide")
	ErrTooFewDots = errors.New("analysis: need at least two dots")
)

// Density bins positions in [-1,1]² into a grid x grid count histogram and
// subtracts the mean count from every cell.
func Density(positions []r2.Vec, grid int) [][]float64 {
	d := make([][]float64, grid)
	for y := range d {
		d[y] = make([]float64, grid)
	}
	for _, p := range positions {
		x, y := cell(p.X, grid), cell(p.Y, grid)
		d[y][x]++
	}

	mean := float64(len(positions)) / float64(grid*grid)
	for y := range d {
		for x := range d[y] {
			d[y][x] -= mean
		}
	}
	return d
}

func cell(v float64, grid int) int {
	c := int(math.Floor((v + 1) / 2 * float64(grid)))
	return max(0, min(grid-1, c))
}

// RadialSpectrum returns grid/2 bins of power, bin k averaging every
// frequency whose radius rounds to k. Power is normalized by the dot count so
// that Poisson dots average 1 away from DC.
func RadialSpectrum(positions []r2.Vec, grid int) ([]float64, error) {
	if grid < 4 {
		return nil, fmt.Errorf("%w: %d", ErrGridSize, grid)
	}
	if len(positions) < 2 {
		return nil, ErrTooFewDots
	}

	freq := fft.FFT2Real(Density(positions, grid))
	n := float64(len(positions))

	bins := grid / 2
	sum := make([]float64, bins)
	count := make([]float64, bins)
	for v := 0; v < grid; v++ {
		for u := 0; u < grid; u++ {
			r := int(math.Round(math.Hypot(float64(signed(u, grid)), float64(signed(v, grid)))))
			if r >= bins {
				continue
			}
			a := cmplx.Abs(freq[v][u])
			sum[r] += a * a / n
			count[r]++
		}
	}

	for k := range sum {
		if count[k] > 0 {
			sum[k] /= count[k]
		}
	}
	return sum, nil
}

func signed(k, n int) int {
	if k > n/2 {
		return k - n
	}
	return k
}

// LowFrequencyPower is the mean of spectrum bins 1 through cutoff-1. DC is
// excluded.
func LowFrequencyPower(spectrum []float64, cutoff int) float64 {
	cutoff = min(cutoff, len(spectrum))
	if cutoff < 2 {
		return 0
	}
	return stat.Mean(spectrum[1:cutoff], nil)
}

// NearestNeighbor returns the mean distance from each dot to its closest
// neighbor and the coefficient of variation of those distances.
func NearestNeighbor(positions []r2.Vec) (mean, cv float64, err error) {
	if len(positions) < 2 {
		return 0, 0, ErrTooFewDots
	}

	dist := make([]float64, len(positions))
	for i, p := range positions {
		best := math.Inf(1)
		for j, q := range positions {
			if i == j {
				continue
			}
			best = math.Min(best, r2.Norm(r2.Sub(p, q)))
		}
		dist[i] = best
	}

	mean, std := stat.MeanStdDev(dist, nil)
	if mean == 0 {
		return 0, math.Inf(1), nil
	}
	return mean, std / mean, nil
}
