// Package simulation orchestrates triple-force computations: it builds the
// spatial index, drives the pruning traversal, flushes postponed
// contributions, and assembles per-point force vectors, with caching,
// persistence and progress reporting around the numeric core.
package simulation

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/onnwee/tripletree/internal/cache"
	"github.com/onnwee/tripletree/internal/errorreporting"
	"github.com/onnwee/tripletree/internal/force"
	"github.com/onnwee/tripletree/internal/kdtree"
	"github.com/onnwee/tripletree/internal/logger"
	"github.com/onnwee/tripletree/internal/metrics"
	"github.com/onnwee/tripletree/internal/store"
	"github.com/onnwee/tripletree/internal/tracing"
)

// Params configures one computation. Zero values select the configured
// defaults.
type Params struct {
	Coeff      float64 `json:"coeff,omitempty"`
	RelErr     float64 `json:"relative_error,omitempty"`
	ZScore     float64 `json:"z_score,omitempty"`
	LeafSize   int     `json:"leaf_size,omitempty"`
	MaxSamples int     `json:"max_samples,omitempty"`
	Seed       int64   `json:"seed,omitempty"`
	MonteCarlo bool    `json:"monte_carlo,omitempty"`
}

func (p Params) withDefaults() Params {
	if p.Coeff == 0 {
		p.Coeff = force.DefaultCoeff
	}
	if p.RelErr == 0 {
		p.RelErr = 0.1
	}
	if p.ZScore == 0 {
		p.ZScore = 1.96
	}
	if p.LeafSize == 0 {
		p.LeafSize = kdtree.DefaultLeafSize
	}
	return p
}

// Summary reports how a run's work was retired.
type Summary struct {
	Points              int   `json:"points"`
	TriplesVisited      int64 `json:"triples_visited"`
	DeterministicPrunes int64 `json:"deterministic_prunes"`
	MonteCarloPrunes    int64 `json:"monte_carlo_prunes"`
	ExactTriples        int64 `json:"exact_triples"`
	DurationMs          int64 `json:"duration_ms"`
}

// Result is the outcome of a computation: one force vector per input point,
// in input order.
type Result struct {
	Forces  [][]float64 `json:"forces"`
	Summary Summary     `json:"summary"`
}

// ProgressPublisher receives coarse progress updates for a run. Implemented
// by the websocket hub; a nil publisher disables reporting.
type ProgressPublisher interface {
	Publish(runID string, fraction float64)
}

// Service runs computations and owns their persistence and caching.
type Service struct {
	store *store.Store
	cache cache.Cache
	pub   ProgressPublisher
}

// NewService creates a service. store, cache and pub may each be nil; the
// corresponding concern is then skipped.
func NewService(st *store.Store, c cache.Cache, pub ProgressPublisher) *Service {
	return &Service{store: st, cache: c, pub: pub}
}

// Compute performs one computation synchronously. onProgress, when non-nil,
// is invoked with the fraction of point triples retired, throttled to whole
// percent steps.
func (s *Service) Compute(ctx context.Context, points force.Points, params Params, onProgress func(float64)) (*Result, error) {
	params = params.withDefaults()
	if err := validate(points); err != nil {
		return nil, err
	}
	points = translated(points)

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "simulation.compute",
		oteltrace.WithAttributes(attribute.Int("points", len(points))))
	defer span.End()

	_, buildSpan := tracing.StartSpan(ctx, "simulation.build_tree")
	tree := kdtree.Build(points, params.LeafSize)
	buildSpan.End()

	var rng = newRNG(params.Seed)
	kernel := force.NewKernel(params.Coeff, params.MaxSamples, rng)

	progress := throttled(onProgress)
	tr := newTraversal(tree, kernel, params.RelErr, params.ZScore, params.MonteCarlo, progress)

	_, walkSpan := tracing.StartSpan(ctx, "simulation.traverse")
	res := tr.run()
	walkSpan.End()

	forces := make([][]float64, len(points))
	out := make([]float64, points.Dim())
	for i := range tree.Data {
		res.Force(i, tree.Data[i], out)
		v := make([]float64, len(out))
		copy(v, out)
		forces[tree.Perm[i]] = v
	}

	elapsed := time.Since(start)
	metrics.TriplesVisited.Add(float64(tr.visited))
	metrics.PrunesTotal.WithLabelValues("deterministic").Add(float64(tr.detPrunes))
	metrics.PrunesTotal.WithLabelValues("monte_carlo").Add(float64(tr.mcPrunes))
	metrics.ExactTriples.Add(float64(tr.exactEvals))
	metrics.RunDuration.Observe(elapsed.Seconds())

	return &Result{
		Forces: forces,
		Summary: Summary{
			Points:              len(points),
			TriplesVisited:      tr.visited,
			DeterministicPrunes: tr.detPrunes,
			MonteCarloPrunes:    tr.mcPrunes,
			ExactTriples:        tr.exactEvals,
			DurationMs:          elapsed.Milliseconds(),
		},
	}, nil
}

// Run executes a persisted run end to end: cache lookup, computation,
// force persistence and status transitions. Failures are recorded on the run
// and reported before being returned.
func (s *Service) Run(ctx context.Context, runID string, points force.Points, params Params) error {
	params = params.withDefaults()
	log := logger.WithComponent("simulation")

	if s.store != nil {
		if err := s.store.MarkRunning(ctx, runID); err != nil {
			return fmt.Errorf("failed to mark run %s running: %w", runID, err)
		}
	}

	var result *Result
	key := cacheKey(points, params)
	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			var cached Result
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.Inc()
				log.Info("serving run from cache", "run_id", runID)
				result = &cached
			}
		}
		if result == nil {
			metrics.CacheMisses.Inc()
		}
	}

	if result == nil {
		var err error
		result, err = s.Compute(ctx, points, params, func(f float64) {
			if s.pub != nil {
				s.pub.Publish(runID, f)
			}
		})
		if err != nil {
			errorreporting.CaptureError(err)
			if s.store != nil {
				_ = s.store.MarkFailed(ctx, runID, err.Error())
			}
			return fmt.Errorf("run %s failed: %w", runID, err)
		}
		if s.cache != nil {
			if data, err := json.Marshal(result); err == nil {
				s.cache.Set(key, data, 0)
			}
		}
	}

	if s.store != nil {
		if err := s.store.SaveForces(ctx, runID, result.Forces); err != nil {
			_ = s.store.MarkFailed(ctx, runID, err.Error())
			return fmt.Errorf("failed to save forces for run %s: %w", runID, err)
		}
		summary, err := json.Marshal(result.Summary)
		if err != nil {
			return fmt.Errorf("failed to encode summary for run %s: %w", runID, err)
		}
		if err := s.store.MarkCompleted(ctx, runID, summary); err != nil {
			return fmt.Errorf("failed to complete run %s: %w", runID, err)
		}
	}
	if s.pub != nil {
		s.pub.Publish(runID, 1.0)
	}

	log.Info("run completed",
		"run_id", runID,
		"points", result.Summary.Points,
		"pruned", result.Summary.DeterministicPrunes+result.Summary.MonteCarloPrunes,
		"exact_triples", result.Summary.ExactTriples,
		"duration_ms", result.Summary.DurationMs,
	)
	return nil
}

// Forces returns a run's persisted force vectors.
func (s *Service) Forces(ctx context.Context, runID string) ([][]float64, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	return s.store.Forces(ctx, runID)
}

func validate(points force.Points) error {
	if len(points) < 3 {
		return fmt.Errorf("need at least 3 points, got %d", len(points))
	}
	dim := points.Dim()
	if dim == 0 {
		return fmt.Errorf("points must have at least one dimension")
	}
	for i, p := range points {
		if len(p) != dim {
			return fmt.Errorf("point %d has dimension %d, want %d", i, len(p), dim)
		}
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("point %d has a non-finite coordinate", i)
			}
		}
	}
	return nil
}

// translated shifts the dataset into the positive orthant. Forces depend
// only on relative positions, so the output is unchanged, and nonnegative
// coordinates keep the seeded coordinate-sum projections sign-consistent
// per dimension.
func translated(points force.Points) force.Points {
	dim := points.Dim()
	lo := make([]float64, dim)
	copy(lo, points[0])
	for _, p := range points {
		for d, v := range p {
			if v < lo[d] {
				lo[d] = v
			}
		}
	}
	shift := false
	for _, v := range lo {
		if v < 0 {
			shift = true
			break
		}
	}
	if !shift {
		return points
	}
	out := make(force.Points, len(points))
	for i, p := range points {
		q := make([]float64, dim)
		for d, v := range p {
			if lo[d] < 0 {
				q[d] = v - lo[d]
			} else {
				q[d] = v
			}
		}
		out[i] = q
	}
	return out
}

// throttled wraps a progress callback so it fires on whole-percent steps
// only; the traversal can retire millions of sub-triples.
func throttled(fn func(float64)) func(float64) {
	if fn == nil {
		return nil
	}
	last := -1
	return func(f float64) {
		pct := int(f * 100)
		if pct > last {
			last = pct
			fn(f)
		}
	}
}

// cacheKey digests the dataset and parameters; identical submissions share a
// cache entry.
func cacheKey(points force.Points, params Params) string {
	h := sha256.New()
	var buf [8]byte
	for _, p := range points {
		for _, v := range p {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	enc, _ := json.Marshal(params)
	h.Write(enc)
	return "run:" + hex.EncodeToString(h.Sum(nil))
}
