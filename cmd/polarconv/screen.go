package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"polarconv/internal/convert"
	"polarconv/internal/logging"
	"polarconv/internal/notifications"
	"polarconv/internal/ui"
)

const (
	toastSuccessTitle  = "Polar Converter Finished!!"
	toastSuccessDetail = "World Folder Opened..."
	toastFailureTitle  = "Polar Converter FAILED!!"
	toastFailureDetail = "please check console."
)

// consoleScreen is the terminal host: a ui.Layout for the trigger's button
// and the trigger.Presenter that shows the outcome toast.
type consoleScreen struct {
	ctx      context.Context
	out      io.Writer
	colorize bool
	logger   *slog.Logger
	notifier notifications.Service
	open     func(ctx context.Context, path string) error
	onShown  func(convert.Outcome)

	mu       sync.Mutex
	controls []*ui.Button
	notifies sync.WaitGroup
}

func newConsoleScreen(ctx context.Context, out io.Writer, logger *slog.Logger, notifier notifications.Service) *consoleScreen {
	return &consoleScreen{
		ctx:      ctx,
		out:      out,
		colorize: shouldColorize(out),
		logger:   logging.NewComponentLogger(logger, "screen"),
		notifier: notifier,
	}
}

func (s *consoleScreen) AddControl(control *ui.Button) {
	s.mu.Lock()
	s.controls = append(s.controls, control)
	s.mu.Unlock()
}

// render prints every registered control in its current state.
func (s *consoleScreen) render() {
	s.mu.Lock()
	controls := append([]*ui.Button(nil), s.controls...)
	s.mu.Unlock()
	for _, control := range controls {
		fmt.Fprintln(s.out, renderControl(control.Label(), control.Enabled(), s.colorize))
	}
}

func (s *consoleScreen) ShowOutcome(outcome convert.Outcome) {
	s.render()

	var lines []string
	if outcome.Succeeded {
		detail := fmt.Sprintf("Saved %s", outcome.Output)
		if s.open != nil {
			if err := s.open(s.ctx, outcome.Source); err != nil {
				logging.WarnWithContext(s.logger, "failed to open world folder", "open_folder_failed",
					logging.String("path", outcome.Source),
					logging.Error(err),
					logging.String(logging.FieldImpact, "world folder was not opened"),
				)
			} else {
				detail = toastSuccessDetail
			}
		}
		lines = renderToast(statusOK, toastSuccessTitle, detail, s.colorize)
		lines = append(lines, statusIndent+outcome.Message)
	} else {
		lines = renderToast(statusError, toastFailureTitle, toastFailureDetail, s.colorize)
		lines = append(lines, statusIndent+outcome.Message)
	}
	for _, line := range lines {
		fmt.Fprintln(s.out, line)
	}

	if s.notifier != nil {
		s.notifies.Add(1)
		go s.notify(outcome)
	}
	if s.onShown != nil {
		s.onShown(outcome)
	}
}

// notify pushes outcome off the UI goroutine.
func (s *consoleScreen) notify(outcome convert.Outcome) {
	defer s.notifies.Done()
	if err := s.notifier.NotifyConversion(s.ctx, outcome); err != nil {
		logging.WarnWithContext(s.logger, "failed to send notification", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ntfy subscribers were not told about this run"),
		)
	}
}

// Wait blocks until every notification started by ShowOutcome has finished.
func (s *consoleScreen) Wait() {
	s.notifies.Wait()
}
