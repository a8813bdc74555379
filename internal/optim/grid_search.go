// Package optim searches simulation parameters for the most even stippling.
package optim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

var ErrEmptyGrid = errors.New("optim: grid has no points")

// Objective scores one parameter combination. Lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Score  float64
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	parallel   int
}

// NewGridSearch searches the cartesian product of ranges, ranges[i] holding
// the values tried for params[i]. parallel bounds concurrent evaluations;
// values below 1 mean one at a time.
func NewGridSearch(params []string, ranges [][]float64, parallel int) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameter names for %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: no values for %s", ErrEmptyGrid, params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, parallel: max(1, parallel)}, nil
}

// Points lists every combination in lexical order of the ranges.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.collect(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, maps.Clone(current))
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := maps.Clone(current)
		next[name] = val
		g.collect(depth+1, next, out)
	}
}

// Search evaluates every point and returns the trials sorted best first.
// The first objective error cancels the search.
func (g *GridSearch) Search(ctx context.Context, objective Objective) ([]Trial, error) {
	points := g.Points()
	if len(points) == 0 {
		return nil, ErrEmptyGrid
	}

	trials := make([]Trial, len(points))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallel)

	for i, p := range points {
		i, p := i, p
		eg.Go(func() error {
			score, err := objective(ctx, p)
			if err != nil {
				return fmt.Errorf("optim: %v: %w", p, err)
			}
			if math.IsNaN(score) {
				score = math.Inf(1)
			}
			trials[i] = Trial{Params: p, Score: score}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(trials, func(a, b int) bool { return trials[a].Score < trials[b].Score })
	return trials, nil
}
