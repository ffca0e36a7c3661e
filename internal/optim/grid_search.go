package optim

import (
	"context"
	"errors"
	"math"

	"github.com/san-kum/ctmc/internal/experiment"
)

var ErrNoResults = errors.New("optim: no grid point produced a result")

// Point is one evaluated parameter combination.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	points     []Point
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs one experiment per grid point and returns the parameters with
// the smallest value of metricName. Failed points are recorded and skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {
	g.points = g.points[:0]

	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, metricName, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoResults
	}

	return bestParams, best, nil
}

// Points returns every point evaluated by the last Search, in grid order.
func (g *GridSearch) Points() []Point {
	return g.points
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		p := Point{Params: current, Value: math.NaN()}
		defer func() { g.points = append(g.points, p) }()

		exp, err := buildExperiment(current)
		if err != nil {
			p.Err = err
			return nil
		}

		result, err := exp.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Err = err
			return nil
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			p.Err = errors.New("optim: unknown metric " + metricName)
			return nil
		}
		p.Value = val
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
