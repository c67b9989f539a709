// Package worker exposes helpers to register workflows/activities with a Temporal worker.
package worker

import (
	"github.com/ahrav/go-adhere/internal/aggregation"
	"github.com/ahrav/go-adhere/internal/scoring"
	"github.com/ahrav/go-adhere/internal/workflow"
	"github.com/ahrav/go-adhere/pkg/activity"
	"github.com/ahrav/go-adhere/pkg/events"
)

// Registrar is the registration surface shared by a Temporal worker and the
// test workflow environment.
type Registrar interface {
	RegisterWorkflow(w interface{})
	RegisterActivity(a interface{})
}

// RegisterAll registers all workflows and activities with the Temporal worker.
// This function must be called during worker initialization before starting
// the worker. The registration is not thread-safe and should only be called once
// during application startup.
//
// A nil sink discards domain events; a nil registry uses the built-in evaluators.
// observer, when set, sees every unit the scoring activity evaluates.
func RegisterAll(w Registrar, sink events.EventSink, registry *scoring.Registry, observer scoring.Observer) {
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	base := activity.NewBaseActivities(sink)

	scoringActivities := scoring.NewActivities(base, registry)
	if observer != nil {
		scoringActivities.WithObserver(observer)
	}
	aggregationActivities := aggregation.NewActivities(base)

	w.RegisterWorkflow(workflow.BatchScoringWorkflow)

	w.RegisterActivity(scoringActivities.ScoreUnits)
	w.RegisterActivity(aggregationActivities.SummarizeWindows)
}
