// Package scoring implements the adherence evaluators and the registry that
// dispatches a configuration to the evaluator for its algorithm kind.
//
// Every evaluator is a pure function of (AlgorithmConfig, EvaluationInput):
// no shared mutable state, no I/O and no blocking, so the batch runner may call
// them from any number of goroutines. Evaluators receive fully resolved
// parameters; defaults are applied by domain.ParseConfig and never here.
//
// Failure semantics:
//   - A configuration whose parameters do not match its kind is a ConfigValidationError.
//   - A series that does not cover the window is a DataShapeError.
//   - Too few observations is reported as a ScoreResult with status
//     insufficient_data, never as a score of 0.
package scoring

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ahrav/go-adhere/internal/domain"
)

// Evaluator scores one evaluation window for one configuration.
type Evaluator interface {
	Evaluate(cfg *domain.AlgorithmConfig, in domain.EvaluationInput) (domain.ScoreResult, error)
}

// EvalFunc is an evaluator over one concrete parameter variant.
type EvalFunc[P domain.MethodParams] func(cfg *domain.AlgorithmConfig, p P, in domain.EvaluationInput) (domain.ScoreResult, error)

// typedEvaluator adapts an EvalFunc to Evaluator. The type assertion is the
// only place parameters are narrowed; a mismatch is a configuration error.
type typedEvaluator[P domain.MethodParams] struct {
	fn EvalFunc[P]
}

// Typed wraps fn as an Evaluator.
func Typed[P domain.MethodParams](
	fn func(cfg *domain.AlgorithmConfig, p P, in domain.EvaluationInput) (domain.ScoreResult, error),
) Evaluator {
	return typedEvaluator[P]{fn: fn}
}

func (e typedEvaluator[P]) Evaluate(cfg *domain.AlgorithmConfig, in domain.EvaluationInput) (domain.ScoreResult, error) {
	p, ok := cfg.Params.(P)
	if !ok {
		return domain.ScoreResult{}, &domain.ConfigValidationError{
			ConfigID: cfg.ConfigID,
			Field:    "schema",
			Reason:   fmt.Sprintf("parameters %T do not match %s", cfg.Params, cfg.Method),
		}
	}
	return e.fn(cfg, p, in)
}

// Registry maps algorithm kinds to evaluators. It is safe for concurrent use;
// registration normally happens once at startup.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[domain.AlgorithmKind]Evaluator
}

// NewRegistry returns a registry with every built-in algorithm registered.
func NewRegistry() *Registry {
	r := &Registry{evaluators: make(map[domain.AlgorithmKind]Evaluator)}
	r.mustRegister(domain.KindBinaryThreshold, Typed(evaluateBinaryThreshold))
	r.mustRegister(domain.KindMinimumFrequency, Typed(evaluateMinimumFrequency))
	r.mustRegister(domain.KindWeeklyElimination, Typed(evaluateWeeklyElimination))
	r.mustRegister(domain.KindProportional, Typed(evaluateProportional))
	r.mustRegister(domain.KindProportionalFrequencyHybrid, Typed(evaluateHybrid))
	r.mustRegister(domain.KindZoneBased3Tier, Typed(evaluateZoneBased))
	r.mustRegister(domain.KindZoneBased5Tier, Typed(evaluateZoneBased))
	r.mustRegister(domain.KindCompositeWeighted, Typed(evaluateComposite))
	r.mustRegister(domain.KindSleepComposite, Typed(evaluateSleepComposite))
	r.mustRegister(domain.KindCategoricalFilterThreshold, Typed(evaluateCategoricalFilter))
	r.mustRegister(domain.KindConstrainedWeeklyAllowance, Typed(evaluateConstrainedAllowance))
	return r
}

// Register adds an evaluator for kind. Registering a kind twice is an error.
func (r *Registry) Register(kind domain.AlgorithmKind, ev Evaluator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.evaluators[kind]; exists {
		return fmt.Errorf("evaluator for %s already registered", kind)
	}
	r.evaluators[kind] = ev
	return nil
}

func (r *Registry) mustRegister(kind domain.AlgorithmKind, ev Evaluator) {
	if err := r.Register(kind, ev); err != nil {
		panic(err)
	}
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []domain.AlgorithmKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.AlgorithmKind, 0, len(r.evaluators))
	for k := range r.evaluators {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Evaluate dispatches cfg to its evaluator. Insufficient data is converted into
// an insufficient_data result with a nil error; configuration and shape
// problems are returned as errors.
func (r *Registry) Evaluate(cfg *domain.AlgorithmConfig, in domain.EvaluationInput) (domain.ScoreResult, error) {
	if cfg == nil || cfg.Params == nil {
		return domain.ScoreResult{}, &domain.ConfigValidationError{Field: "schema", Reason: "configuration has no parameters"}
	}
	r.mu.RLock()
	ev, ok := r.evaluators[cfg.Method]
	r.mu.RUnlock()
	if !ok {
		return domain.ScoreResult{}, &domain.ConfigValidationError{
			ConfigID: cfg.ConfigID,
			Field:    "scoringMethod",
			Reason:   fmt.Sprintf("no evaluator registered for %q", cfg.Method),
		}
	}

	res, err := ev.Evaluate(cfg, in)
	if err != nil {
		if ide, ok := domain.AsInsufficient(err); ok {
			return domain.InsufficientResult(cfg, ide), nil
		}
		return domain.ScoreResult{}, err
	}
	return res, nil
}

// EvaluateUnit resolves the unit's configuration and evaluates it. Failures are
// recorded on the UnitResult so one bad unit never aborts its siblings.
func (r *Registry) EvaluateUnit(configs domain.ConfigLookup, unit domain.EvaluationUnit) domain.UnitResult {
	cfg, ok := configs.Config(unit.ConfigID)
	if !ok {
		return domain.NewUnitFailure(unit, &domain.ConfigValidationError{
			ConfigID: unit.ConfigID,
			Field:    "configId",
			Reason:   "unknown configuration",
		})
	}
	res, err := r.Evaluate(cfg, unit.Input)
	if err != nil {
		return domain.NewUnitFailure(unit, err)
	}
	return domain.NewUnitResult(unit, res)
}
