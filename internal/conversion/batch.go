package conversion

import (
	"context"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"

	"golang-camt-importer/internal/configuration"
	"golang-camt-importer/internal/content"
	"golang-camt-importer/pkg/logger"
)

// Input is one statement of a batch
type Input struct {
	// Identifier is adopted as the run id when set
	Identifier string
	Source     content.Source
}

// Outcome is the result of one batch input. Exactly one of Result and Err is set.
type Outcome struct {
	Input  Input
	RunID  string
	Result *Result
	Err    error
}

// RunBatch converts every input in its own run, at most concurrency at a
// time. Outcomes keep the order of inputs. A failing input does not stop the others.
func RunBatch(ctx context.Context, cfg *configuration.Configuration, inputs []Input, concurrency int, opts ...Option) []Outcome {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	// options are applied to a throwaway manager to find the logger
	settings := &RoutineManager{baseLogger: logger.GetGlobalLogger()}
	for _, opt := range opts {
		opt(settings)
	}

	batchLogger := settings.baseLogger.WithComponent("batch")
	batchLogger.Debugf("Converting %d statements, %d at a time", len(inputs), concurrency)

	progress := logger.NewProgressTracker(logger.ProgressConfig{
		Operation:   "convert_batch",
		Total:       int64(len(inputs)),
		LogInterval: time.Second,
		Logger:      batchLogger,
	})

	outcomes := make([]Outcome, len(inputs))
	p := pool.New().WithMaxGoroutines(concurrency)
	for i, input := range inputs {
		i, input := i, input
		p.Go(func() {
			outcomes[i] = runOne(ctx, cfg, input, opts)
			progress.Done(outcomes[i].Err)
		})
	}
	p.Wait()
	progress.Complete()

	return outcomes
}

func runOne(ctx context.Context, cfg *configuration.Configuration, input Input, opts []Option) Outcome {
	outcome := Outcome{Input: input}

	runOpts := append(append([]Option(nil), opts...), WithSource(input.Source))
	manager, err := NewRoutineManager(input.Identifier, runOpts...)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.RunID = manager.RunID()

	if err := manager.Configure(cfg); err != nil {
		outcome.Err = err
		return outcome
	}
	if _, err := manager.Run(ctx); err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Result = manager.Result()
	return outcome
}
