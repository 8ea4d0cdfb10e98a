package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"polarconv/internal/convert"
	"polarconv/internal/logging"
	"polarconv/internal/ui"
)

func TestRenderToastPlain(t *testing.T) {
	tests := []struct {
		name   string
		kind   statusKind
		detail string
		want   []string
	}{
		{name: "ok", kind: statusOK, detail: "saved", want: []string{"[OK] title", "  saved"}},
		{name: "error", kind: statusError, want: []string{"[FAILED] title"}},
		{name: "info", kind: statusInfo, detail: "x", want: []string{"[INFO] title", "  x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderToast(tt.kind, "title", tt.detail, false)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Fatalf("renderToast = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderControlColor(t *testing.T) {
	plain := renderControl("Convert to Polar", true, false)
	if plain != "[ Convert to Polar ]" {
		t.Fatalf("plain control = %q", plain)
	}
	colored := renderControl("Convert to Polar", true, true)
	if colored == plain || !strings.Contains(colored, "Convert to Polar") {
		t.Fatalf("expected colored control, got %q", colored)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers should never be colorized")
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []convert.Outcome
	release  chan struct{}
}

func (r *recordingNotifier) NotifyConversion(_ context.Context, outcome convert.Outcome) error {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
	return errors.New("offline")
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestConsoleScreenShowOutcome(t *testing.T) {
	var out bytes.Buffer
	notifier := &recordingNotifier{}
	screen := newConsoleScreen(context.Background(), &out, logging.NewNop(), notifier)
	screen.AddControl(ui.NewButton("polar-convert", "Convert to Polar", nil))

	var opened string
	screen.open = func(_ context.Context, path string) error {
		opened = path
		return nil
	}

	screen.ShowOutcome(convert.Outcome{Succeeded: true, Source: "/worlds/lobby", Output: "/worlds/lobby/lobby.polar", Message: "converted 4 chunks"})
	if opened != "/worlds/lobby" {
		t.Fatalf("opened %q, want world folder", opened)
	}
	got := out.String()
	for _, want := range []string{"[ Convert to Polar ]", toastSuccessTitle, toastSuccessDetail, "converted 4 chunks"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}

	out.Reset()
	screen.open = func(context.Context, string) error { return errors.New("no desktop") }
	screen.ShowOutcome(convert.Outcome{Succeeded: true, Source: "/w", Output: "/w/w.polar", Message: "ok"})
	if !strings.Contains(out.String(), "Saved /w/w.polar") {
		t.Fatalf("expected saved path fallback, got:\n%s", out.String())
	}

	out.Reset()
	screen.ShowOutcome(convert.Outcome{Message: "failed to read world: boom"})
	got = out.String()
	for _, want := range []string{toastFailureTitle, toastFailureDetail, "failed to read world: boom"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
	screen.Wait()
	if got := notifier.count(); got != 3 {
		t.Fatalf("notified %d times, want 3", got)
	}
}

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("Backend lock", statusOK, "available", false)
	want := "  Backend lock:        [OK] available"
	if got != want {
		t.Fatalf("renderStatusLine = %q, want %q", got, want)
	}
	if got := renderStatusLine("Folder opener", statusWarn, "", false); !strings.HasSuffix(got, "[WARN]") {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestConsoleScreenNotifiesOffTheCallingGoroutine(t *testing.T) {
	var out bytes.Buffer
	notifier := &recordingNotifier{release: make(chan struct{})}
	screen := newConsoleScreen(context.Background(), &out, logging.NewNop(), notifier)

	shown := make(chan struct{})
	go func() {
		screen.ShowOutcome(convert.Outcome{Message: "failed to read world: boom"})
		close(shown)
	}()
	select {
	case <-shown:
	case <-time.After(5 * time.Second):
		t.Fatal("ShowOutcome blocked on the notifier")
	}
	if got := notifier.count(); got != 0 {
		t.Fatalf("notified %d times before release, want 0", got)
	}

	close(notifier.release)
	screen.Wait()
	if got := notifier.count(); got != 1 {
		t.Fatalf("notified %d times, want 1", got)
	}
}
