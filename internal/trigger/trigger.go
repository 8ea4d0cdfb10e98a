package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"polarconv/internal/convert"
	"polarconv/internal/logging"
	"polarconv/internal/ui"
)

const (
	// ButtonID identifies the trigger's control in a host layout.
	ButtonID = "polar-convert"
	// LabelIdle is shown while no conversion is running.
	LabelIdle = "Convert to Polar"
	// LabelRunning is shown while a conversion is in flight.
	LabelRunning = "Processing..."
)

// State is the trigger's activation state.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Runner performs one conversion. *convert.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req convert.Request) convert.Outcome
}

// RequestFunc builds the request for an activation.
type RequestFunc func() (convert.Request, error)

// Presenter surfaces outcomes to the user. It is called on the UI goroutine.
type Presenter interface {
	ShowOutcome(outcome convert.Outcome)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(convert.Outcome)

// ShowOutcome calls f.
func (f PresenterFunc) ShowOutcome(outcome convert.Outcome) { f(outcome) }

// Trigger coordinates activations of one conversion control.
type Trigger struct {
	ctx        context.Context
	runner     Runner
	request    RequestFunc
	presenter  Presenter
	dispatcher ui.Dispatcher
	logger     *slog.Logger

	state  atomic.Int32
	button *ui.Button
	wg     sync.WaitGroup
}

// New returns an idle trigger. Runs inherit ctx, so cancelling it cancels
// in-flight conversions.
func New(ctx context.Context, runner Runner, request RequestFunc, presenter Presenter, dispatcher ui.Dispatcher, logger *slog.Logger) *Trigger {
	t := &Trigger{
		ctx:        ctx,
		runner:     runner,
		request:    request,
		presenter:  presenter,
		dispatcher: dispatcher,
		logger:     logging.NewComponentLogger(logger, "trigger"),
	}
	t.button = ui.NewButton(ButtonID, LabelIdle, func() { t.Activate() })
	return t
}

// Attach registers the trigger's button with a host layout.
func (t *Trigger) Attach(layout ui.Layout) *ui.Button {
	layout.AddControl(t.button)
	return t.button
}

// Button returns the control driven by the trigger.
func (t *Trigger) Button() *ui.Button {
	return t.button
}

// State reports whether a conversion is in flight.
func (t *Trigger) State() State {
	return State(t.state.Load())
}

// Activate starts a conversion unless one is already running. It must be
// called on the UI goroutine and reports whether a run was started.
func (t *Trigger) Activate() bool {
	if !t.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		t.logger.Debug("activation ignored; conversion already running")
		return false
	}
	t.button.SetEnabled(false)
	t.button.SetLabel(LabelRunning)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		outcome := t.run()
		if err := t.dispatcher.Post(func() { t.complete(outcome) }); err != nil {
			t.state.Store(int32(StateIdle))
			logging.ErrorWithContext(t.logger, "conversion outcome could not be delivered", "outcome_lost",
				logging.Error(err),
				logging.Bool("succeeded", outcome.Succeeded),
				logging.String("message", outcome.Message),
				logging.String(logging.FieldErrorHint, "the UI closed before the conversion finished; check the log for the result"),
			)
		}
	}()
	return true
}

// Wait blocks until no background run is in flight.
func (t *Trigger) Wait() {
	t.wg.Wait()
}

func (t *Trigger) run() (outcome convert.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = convert.FailedOutcome(convert.Request{}, fmt.Errorf("conversion panicked: %v", r))
		}
	}()

	req, err := t.request()
	if err != nil {
		return convert.FailedOutcome(req, err)
	}
	return t.runner.Run(t.ctx, req)
}

func (t *Trigger) complete(outcome convert.Outcome) {
	t.button.SetEnabled(true)
	t.button.SetLabel(LabelIdle)
	t.state.Store(int32(StateIdle))
	if t.presenter != nil {
		t.presenter.ShowOutcome(outcome)
	}
}
