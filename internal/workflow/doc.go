// Package workflow implements Temporal workflow definitions for batch
// adherence scoring.
//
// BatchScoringWorkflow fans a batch out to the ScoreUnits activity in chunks
// and then rolls the results up with SummarizeWindows. Evaluators are pure, so
// activity retries are safe; events emitted by activities carry idempotency
// keys derived from the run and unit so redelivery is harmless.
//
// Workflows should not contain any non-deterministic operations
// such as random number generation, system time access, or external I/O.
// Such operations should be delegated to activities.
package workflow
