package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/queryforge/schemafuse/internal/catalog"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
)

// MaxBenchmarkQueries caps one benchmark run.
const MaxBenchmarkQueries = 20

// QueryOutcome is the result of one (query, method) cell.
type QueryOutcome struct {
	Query       string        `json:"query"`
	Latency     time.Duration `json:"latency"`
	ResultCount int           `json:"result_count"`
	Error       string        `json:"error,omitempty"`
}

// MethodStats aggregates one method's column of the benchmark matrix.
type MethodStats struct {
	TotalTime   time.Duration `json:"total_time"`
	AvgLatency  time.Duration `json:"avg_latency"`
	SuccessRate float64       `json:"success_rate"`
}

// BenchmarkRun is the full result of one benchmark.
type BenchmarkRun struct {
	ID       string                    `json:"id"`
	Queries  []string                  `json:"queries"`
	Methods  []Method                  `json:"methods"`
	Stats    map[Method]MethodStats    `json:"stats"`
	Outcomes map[Method][]QueryOutcome `json:"outcomes"`
}

// BenchmarkRunner measures per-method latency and success rate over a
// set of queries.
type BenchmarkRunner struct {
	engine *Engine
}

// NewBenchmarkRunner creates a benchmark runner.
func NewBenchmarkRunner(engine *Engine) *BenchmarkRunner {
	return &BenchmarkRunner{engine: engine}
}

// Run executes every query against every method sequentially, so
// measured latencies don't contend with each other. Individual
// failures are recorded in their outcome and never abort the run;
// context cancellation does.
func (r *BenchmarkRunner) Run(ctx context.Context, queries []string, methods []Method, scope catalog.Scope) (*BenchmarkRun, error) {
	if len(queries) == 0 {
		return nil, fuseerrors.InvalidConfig("queries", "at least one query is required")
	}
	if len(queries) > MaxBenchmarkQueries {
		return nil, fuseerrors.InvalidConfig("queries",
			fmt.Sprintf("at most %d queries per run, got %d", MaxBenchmarkQueries, len(queries)))
	}
	resolved, err := resolveMethods(methods)
	if err != nil {
		return nil, err
	}

	run := &BenchmarkRun{
		ID:       uuid.NewString(),
		Queries:  queries,
		Methods:  resolved,
		Stats:    make(map[Method]MethodStats, len(resolved)),
		Outcomes: make(map[Method][]QueryOutcome, len(resolved)),
	}

	for _, method := range resolved {
		outcomes := make([]QueryOutcome, 0, len(queries))
		var total time.Duration
		successes := 0

		for _, query := range queries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			start := time.Now()
			results, err := r.engine.Search(ctx, query, method, scope, nil)
			latency := time.Since(start)
			total += latency

			outcome := QueryOutcome{
				Query:       query,
				Latency:     latency,
				ResultCount: len(results),
			}
			if err != nil {
				outcome.Error = err.Error()
			} else {
				successes++
			}
			outcomes = append(outcomes, outcome)
		}

		run.Outcomes[method] = outcomes
		run.Stats[method] = MethodStats{
			TotalTime:   total,
			AvgLatency:  total / time.Duration(len(queries)),
			SuccessRate: float64(successes) / float64(len(queries)),
		}
	}

	return run, nil
}
