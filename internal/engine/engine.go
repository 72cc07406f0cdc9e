// Package engine sequences a single resumable pass over the work plan:
// scan the result log for prior progress, then for each remaining unit wait
// on the rate pacer, invoke the provider, and persist the attempt outcome.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/common"
	"github.com/acses/curator/internal/dataset"
	"github.com/acses/curator/internal/llm"
	"github.com/acses/curator/internal/plan"
	"github.com/acses/curator/internal/progress"
	"github.com/acses/curator/internal/results"
)

// Status is the terminal state of a pass.
type Status string

const (
	// StatusCompleted means every remaining unit ended in success this pass.
	StatusCompleted Status = "Completed"
	// StatusPartiallyCompleted means the pass ended with units still
	// incomplete after retry-eligible failures or cancellation.
	StatusPartiallyCompleted Status = "PartiallyCompleted"
	// StatusAborted means the pass ended early on a fatal error or a
	// persistence failure.
	StatusAborted Status = "Aborted"
)

// Report summarizes a pass. No failure is ever silently dropped: every
// attempt is either a new success, counted in FailuresByKind, or the pass
// aborted.
type Report struct {
	Status          Status
	PlanSize        int
	AlreadyComplete int
	Attempted       int
	NewSuccesses    int
	FailuresByKind  map[llm.Kind]int
	SkippedUnits    int
	Remaining       int
	MalformedLines  int
	Err             error
}

// Pacer is the rate-limiting dependency of the engine.
type Pacer interface {
	Wait(ctx context.Context, model string) error
	Penalize(model string, retryAfter time.Duration)
}

// Appender is the durable result log dependency of the engine.
type Appender interface {
	Append(record *results.Record) error
	Path() string
}

// PromptBuilder formats the request text for a sample.
type PromptBuilder interface {
	Build(sample dataset.Sample) (string, error)
}

// Engine runs passes. Scheduling is strictly sequential: one unit is
// processed end to end before the next begins.
type Engine struct {
	config   *common.Config
	samples  []dataset.Sample
	provider llm.Provider
	pacer    Pacer
	writer   Appender
	prompts  PromptBuilder
	logger   arbor.ILogger
	now      func() time.Time
}

// New assembles an engine from its collaborators.
func New(cfg *common.Config, samples []dataset.Sample, provider llm.Provider, pacer Pacer, writer Appender, prompts PromptBuilder, logger arbor.ILogger) *Engine {
	return &Engine{
		config:   cfg,
		samples:  samples,
		provider: provider,
		pacer:    pacer,
		writer:   writer,
		prompts:  prompts,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run executes one pass: Initializing -> Scanning -> Iterating -> terminal
// status. Running twice over an unchanged log and plan is idempotent; the
// second pass performs zero calls. Cancellation is honored at unit
// boundaries only.
func (e *Engine) Run(ctx context.Context) *Report {
	report := &Report{FailuresByKind: make(map[llm.Kind]int)}
	model := e.provider.Model()

	// Initializing
	units := plan.Build(dataset.IDs(e.samples), e.config.Run.Runs)
	samplesByID := dataset.ByID(e.samples)
	report.PlanSize = len(units)

	// Scanning
	scan, err := progress.Scan(e.writer.Path(), e.logger)
	if err != nil {
		report.Status = StatusAborted
		report.Err = err
		return report
	}
	report.MalformedLines = scan.MalformedLines

	remaining := progress.Remaining(units, scan.Index)
	report.AlreadyComplete = report.PlanSize - len(remaining)

	e.logger.Info().
		Str("model", model).
		Int("plan_size", report.PlanSize).
		Int("already_complete", report.AlreadyComplete).
		Int("remaining", len(remaining)).
		Int("malformed_lines", scan.MalformedLines).
		Msg("Pass scan complete")

	if len(remaining) == 0 {
		report.Status = StatusCompleted
		return report
	}

	// Iterating
	completed := make(progress.Index, len(remaining))
	for _, unit := range remaining {
		if ctx.Err() != nil {
			e.logger.Warn().Msg("Pass cancelled; stopping at unit boundary")
			break
		}

		sample, ok := samplesByID[unit.SampleID]
		if !ok {
			// Plan and sample set come from the same source, so this only
			// happens if the caller wired them inconsistently.
			report.Status = StatusAborted
			report.Err = errUnknownSample(unit.SampleID)
			return report
		}

		promptText, err := e.prompts.Build(sample)
		if err != nil {
			report.SkippedUnits++
			e.logger.Warn().
				Str("sample_id", unit.SampleID).
				Int("run", unit.Run).
				Err(err).
				Msg("Skipping unit: prompt cannot be built")
			continue
		}

		outcome := e.processUnit(ctx, unit, sample, promptText, model, report)
		switch {
		case outcome == unitAborted:
			report.Remaining = countRemaining(remaining, completed)
			report.Status = StatusAborted
			return report
		case outcome == unitSucceeded:
			completed[unit] = struct{}{}
		case outcome == unitCancelled:
			// No attempt was started; exit at the boundary.
			report.Remaining = countRemaining(remaining, completed)
			report.Status = StatusPartiallyCompleted
			return report
		}
	}

	report.Remaining = countRemaining(remaining, completed)
	if report.Remaining == 0 {
		report.Status = StatusCompleted
	} else {
		report.Status = StatusPartiallyCompleted
	}
	return report
}

type unitOutcome int

const (
	unitSucceeded unitOutcome = iota
	unitFailed
	unitCancelled
	unitAborted
)

// processUnit drives one work unit end to end: pacer wait, call, persist.
// Retry-eligible failures are retried in-pass at most MaxUnitRetries times
// (default zero); further recovery is deferred to the next pass.
func (e *Engine) processUnit(ctx context.Context, unit plan.Unit, sample dataset.Sample, promptText, model string, report *Report) unitOutcome {
	maxAttempts := 1 + e.config.Run.MaxUnitRetries

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := e.pacer.Wait(ctx, model); err != nil {
			// Pacer waits only fail on cancellation; nothing was sent.
			return unitCancelled
		}

		start := e.now()
		verdict, err := e.provider.Classify(ctx, promptText)
		elapsed := e.now().Sub(start)
		report.Attempted++

		if err == nil {
			record := e.newRecord(unit, sample, model, elapsed)
			record.Success = true
			record.IsCorrect = &verdict.IsCorrect
			record.ConfidenceScore = &verdict.Confidence
			record.Reasoning = verdict.Reasoning
			record.AlternativeCodes = verdict.AlternativeCodes
			record.AlternativeReasoning = verdict.AlternativeReasoning

			if err := e.writer.Append(record); err != nil {
				// The unit must not count as complete if persistence failed.
				report.Err = err
				e.logger.Error().Err(err).Msg("Result persistence failed; aborting pass")
				return unitAborted
			}

			report.NewSuccesses++
			e.logger.Info().
				Str("sample_id", unit.SampleID).
				Int("run", unit.Run).
				Bool("is_correct", verdict.IsCorrect).
				Dur("duration", elapsed).
				Msg("Unit completed")
			return unitSucceeded
		}

		kind := llm.KindOf(err)
		report.FailuresByKind[kind]++

		if kind == llm.KindRateLimited && e.config.Rate.HonorRetryAfter {
			if retryAfter := llm.RetryAfter(err); retryAfter > 0 {
				e.pacer.Penalize(model, retryAfter)
			}
		}

		// Every attempt outcome is persisted, including attempts that will
		// be retried in-pass, so the log and the report counts agree.
		record := e.newRecord(unit, sample, model, elapsed)
		record.ErrorType = string(kind)
		record.ErrorMessage = err.Error()
		if persistErr := e.writer.Append(record); persistErr != nil {
			if kind == llm.KindFatal {
				// The pass is aborting for the fatal error regardless.
				e.logger.Error().Err(persistErr).Msg("Failed to persist fatal failure record")
			} else {
				report.Err = persistErr
				e.logger.Error().Err(persistErr).Msg("Result persistence failed; aborting pass")
				return unitAborted
			}
		}

		if kind == llm.KindFatal {
			report.Err = err
			e.logger.Error().
				Str("sample_id", unit.SampleID).
				Int("run", unit.Run).
				Err(err).
				Msg("Fatal error; aborting pass")
			return unitAborted
		}

		if attempt < maxAttempts {
			e.logger.Warn().
				Str("sample_id", unit.SampleID).
				Int("run", unit.Run).
				Str("kind", string(kind)).
				Int("attempt", attempt).
				Err(err).
				Msg("Retry-eligible failure; retrying in-pass")
			continue
		}

		e.logger.Warn().
			Str("sample_id", unit.SampleID).
			Int("run", unit.Run).
			Str("kind", string(kind)).
			Err(err).
			Msg("Unit failed; deferred to next pass")
		return unitFailed
	}

	return unitFailed
}

func (e *Engine) newRecord(unit plan.Unit, sample dataset.Sample, model string, elapsed time.Duration) *results.Record {
	return &results.Record{
		SampleID:         unit.SampleID,
		RunNumber:        unit.Run,
		ModelName:        model,
		DatasetName:      sample.Dataset,
		Timestamp:        results.NewTimestamp(e.now()),
		ProcessSecs:      elapsed.Seconds(),
		OriginalText:     sample.Text,
		AssignedCode:     sample.KBLICode,
		Category:         sample.Category,
		AlternativeCodes: []string{},
	}
}

func countRemaining(remaining []plan.Unit, completed progress.Index) int {
	count := 0
	for _, unit := range remaining {
		if !completed.Completed(unit) {
			count++
		}
	}
	return count
}

func errUnknownSample(id string) error {
	return errors.New("work plan references unknown sample " + id)
}
