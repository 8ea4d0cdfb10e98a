package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"polarconv/internal/fileutil"
	"polarconv/internal/logging"
)

var errEmptySource = errors.New("source directory is empty")

const outputMode = 0o644

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRecorder stores every outcome through r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithFreeSpaceReserve requires bytes to remain free after the container is
// written.
func WithFreeSpaceReserve(bytes uint64) Option {
	return func(p *Pipeline) {
		p.reserve = bytes
	}
}

// WithClock overrides the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline converts worlds using runtimes started by its Lifecycle.
type Pipeline struct {
	lifecycle Lifecycle
	logger    *slog.Logger
	recorder  Recorder
	reserve   uint64
	now       func() time.Time
}

// NewPipeline constructs a pipeline.
func NewPipeline(lifecycle Lifecycle, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		lifecycle: lifecycle,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs one conversion. It never returns an error: every failure is
// reported through the outcome.
func (p *Pipeline) Run(ctx context.Context, req Request) (outcome Outcome) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	started := p.now()

	outcome = Outcome{RunID: runID, Source: req.Source, Output: req.Output}
	defer func() {
		outcome.Duration = p.now().Sub(started)
		p.finish(ctx, &outcome)
	}()

	logging.WithContext(ctx, p.logger).Info("conversion started",
		logging.String("source", req.Source),
		logging.String("output", req.Output),
		logging.Bool("overwrite", req.Overwrite),
	)

	if req.Source == "" {
		return failed(outcome, ErrRead, errEmptySource)
	}

	runtime, err := p.lifecycle.Start(ctx)
	if err != nil {
		return failed(outcome, ErrInitialization, err)
	}
	defer func() {
		if err := runtime.Stop(); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, p.logger), "runtime stop failed", "runtime_stop_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "backing service resources may not have been released"),
			)
		}
	}()

	snap, err := runtime.Reader().ReadAll(logging.WithStage(ctx, "read"), req.Source)
	if err != nil {
		return failed(outcome, ErrRead, err)
	}
	outcome.Chunks = len(snap.Chunks)

	data, err := runtime.Encoder().Encode(snap)
	if err != nil {
		return failed(outcome, ErrEncode, err)
	}

	if err := p.write(ctx, req, data); err != nil {
		return failed(outcome, ErrWrite, err)
	}
	outcome.Bytes = len(data)
	outcome.Succeeded = true
	outcome.Message = fmt.Sprintf("converted %d chunks to %s", outcome.Chunks, req.Output)
	return outcome
}

func (p *Pipeline) write(ctx context.Context, req Request, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Output == "" {
		return errors.New("output path is empty")
	}
	dir := filepath.Dir(req.Output)
	if err := fileutil.CheckWritableDir(dir); err != nil {
		return err
	}
	if !req.Overwrite {
		exists, err := fileutil.Exists(req.Output)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDestinationExists, req.Output)
		}
	}
	if err := fileutil.EnsureFreeSpace(dir, uint64(len(data)), p.reserve); err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(req.Output, data, outputMode, req.Overwrite); err != nil {
		if errors.Is(err, fileutil.ErrExists) {
			return fmt.Errorf("%w: %s", ErrDestinationExists, req.Output)
		}
		return err
	}
	return nil
}

func failed(outcome Outcome, marker, cause error) Outcome {
	outcome.Succeeded = false
	outcome.Stage = Stage(marker)
	outcome.Err = cause
	if !errors.Is(cause, marker) {
		outcome.Err = Wrap(marker, outcome.Stage, cause)
	}
	outcome.Message = fmt.Sprintf("%s: %v", failurePrefix(marker), cause)
	return outcome
}

func (p *Pipeline) finish(ctx context.Context, outcome *Outcome) {
	logger := logging.WithContext(ctx, p.logger)
	if outcome.Succeeded {
		logger.Info("conversion finished",
			logging.String("output", outcome.Output),
			logging.Int("chunks", outcome.Chunks),
			logging.Int("bytes", outcome.Bytes),
			logging.Duration("duration", outcome.Duration),
		)
	} else {
		marker := Marker(outcome.Err)
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.String(logging.FieldStage, outcome.Stage),
			logging.String("source", outcome.Source),
			logging.String("output", outcome.Output),
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, failureHint(marker, outcome.Err)),
		)
	}

	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(context.WithoutCancel(ctx), *outcome); err != nil {
		logging.WarnWithContext(logger, "failed to record conversion history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will be missing from history"),
		)
	}
}

// Marker returns the failure marker err carries, or nil.
func Marker(err error) error {
	for _, marker := range []error{ErrInitialization, ErrRead, ErrEncode, ErrWrite} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return nil
}

// FailedOutcome builds the outcome for a request that failed before a
// pipeline could run it. Errors without a marker are treated as read
// failures.
func FailedOutcome(req Request, err error) Outcome {
	marker := Marker(err)
	if marker == nil {
		marker = ErrRead
	}
	return failed(Outcome{Source: req.Source, Output: req.Output}, marker, err)
}
