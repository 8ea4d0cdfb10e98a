package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"polarconv/internal/logging"
	"polarconv/internal/world"
)

type fakeReader struct {
	snap *world.Snapshot
	err  error
	dirs []string
}

func (r *fakeReader) ReadAll(_ context.Context, dir string) (*world.Snapshot, error) {
	r.dirs = append(r.dirs, dir)
	return r.snap, r.err
}

type fakeEncoder struct {
	data []byte
	err  error
}

func (e *fakeEncoder) Encode(*world.Snapshot) ([]byte, error) {
	return e.data, e.err
}

type fakeRuntime struct {
	reader  *fakeReader
	encoder *fakeEncoder
	stopErr error
	stops   atomic.Int32
}

func (r *fakeRuntime) Reader() ChunkSourceReader { return r.reader }
func (r *fakeRuntime) Encoder() ContainerEncoder { return r.encoder }
func (r *fakeRuntime) Stop() error {
	r.stops.Add(1)
	return r.stopErr
}

type fakeLifecycle struct {
	runtime  *fakeRuntime
	startErr error
	starts   int
}

func (l *fakeLifecycle) Start(context.Context) (Runtime, error) {
	l.starts++
	if l.startErr != nil {
		return nil, l.startErr
	}
	return l.runtime, nil
}

type recorderFunc func(context.Context, Outcome) error

func (f recorderFunc) Record(ctx context.Context, o Outcome) error { return f(ctx, o) }

func newFakes() (*fakeLifecycle, *fakeRuntime) {
	rt := &fakeRuntime{
		reader: &fakeReader{snap: &world.Snapshot{Chunks: make([]world.Chunk, 3)}},
		encoder: &fakeEncoder{data: []byte("Polr-container")},
	}
	return &fakeLifecycle{runtime: rt}, rt
}

func newRequest(t *testing.T) Request {
	t.Helper()
	dir := t.TempDir()
	return Request{Source: filepath.Join(dir, "world"), Output: filepath.Join(dir, "world.polar")}
}

func TestRunSuccessWritesOutput(t *testing.T) {
	lifecycle, rt := newFakes()
	req := newRequest(t)

	outcome := NewPipeline(lifecycle, logging.NewNop()).Run(context.Background(), req)
	if !outcome.Succeeded {
		t.Fatalf("outcome failed: %s", outcome.Message)
	}
	if outcome.Message != "converted 3 chunks to "+req.Output {
		t.Fatalf("message = %q", outcome.Message)
	}
	data, err := os.ReadFile(req.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) == 0 || outcome.Bytes != len(data) {
		t.Fatalf("output bytes = %d, outcome bytes = %d", len(data), outcome.Bytes)
	}
	if got := rt.stops.Load(); got != 1 {
		t.Fatalf("stop calls = %d, want 1", got)
	}
	if rt.reader.dirs[0] != req.Source {
		t.Fatalf("reader dir = %q", rt.reader.dirs[0])
	}
	if outcome.RunID == "" || outcome.Err != nil {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestRunFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		setup     func(*fakeLifecycle, *fakeRuntime, *Request)
		marker    error
		prefix    string
		wantStops int32
	}{
		{
			name:      "start",
			setup:     func(l *fakeLifecycle, _ *fakeRuntime, _ *Request) { l.startErr = boom },
			marker:    ErrInitialization,
			prefix:    "failed to start conversion runtime: boom",
			wantStops: 0,
		},
		{
			name:      "read",
			setup:     func(_ *fakeLifecycle, rt *fakeRuntime, _ *Request) { rt.reader.err = boom },
			marker:    ErrRead,
			prefix:    "failed to read world: boom",
			wantStops: 1,
		},
		{
			name:      "encode",
			setup:     func(_ *fakeLifecycle, rt *fakeRuntime, _ *Request) { rt.encoder.err = boom },
			marker:    ErrEncode,
			prefix:    "failed to encode world: boom",
			wantStops: 1,
		},
		{
			name: "write missing directory",
			setup: func(_ *fakeLifecycle, _ *fakeRuntime, req *Request) {
				req.Output = filepath.Join(filepath.Dir(req.Output), "missing", "out.polar")
			},
			marker:    ErrWrite,
			prefix:    "failed to save world: ",
			wantStops: 1,
		},
		{
			name:      "empty source",
			setup:     func(_ *fakeLifecycle, _ *fakeRuntime, req *Request) { req.Source = "" },
			marker:    ErrRead,
			prefix:    "failed to read world: ",
			wantStops: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lifecycle, rt := newFakes()
			req := newRequest(t)
			tc.setup(lifecycle, rt, &req)

			outcome := NewPipeline(lifecycle, logging.NewNop()).Run(context.Background(), req)
			if outcome.Succeeded {
				t.Fatalf("expected failure")
			}
			if !errors.Is(outcome.Err, tc.marker) {
				t.Fatalf("outcome error = %v, want %v", outcome.Err, tc.marker)
			}
			if !strings.HasPrefix(outcome.Message, tc.prefix) {
				t.Fatalf("message = %q, want prefix %q", outcome.Message, tc.prefix)
			}
			if got := rt.stops.Load(); got != tc.wantStops {
				t.Fatalf("stop calls = %d, want %d", got, tc.wantStops)
			}
			if _, err := os.Stat(req.Output); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("output should not exist after failure, stat err = %v", err)
			}
		})
	}
}

func TestRunRefusesExistingDestination(t *testing.T) {
	lifecycle, rt := newFakes()
	req := newRequest(t)
	if err := os.WriteFile(req.Output, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	pipeline := NewPipeline(lifecycle, logging.NewNop())
	outcome := pipeline.Run(context.Background(), req)
	if outcome.Succeeded || !errors.Is(outcome.Err, ErrDestinationExists) || !errors.Is(outcome.Err, ErrWrite) {
		t.Fatalf("outcome = %+v, want destination exists failure", outcome)
	}
	if data, _ := os.ReadFile(req.Output); string(data) != "old" {
		t.Fatalf("existing container modified: %q", data)
	}

	req.Overwrite = true
	outcome = pipeline.Run(context.Background(), req)
	if !outcome.Succeeded {
		t.Fatalf("overwrite run failed: %s", outcome.Message)
	}
	if data, _ := os.ReadFile(req.Output); string(data) != "Polr-container" {
		t.Fatalf("container not replaced: %q", data)
	}
	if got := rt.stops.Load(); got != 2 {
		t.Fatalf("stop calls = %d, want 2", got)
	}
}

func TestRunCancelledBeforeWrite(t *testing.T) {
	lifecycle, rt := newFakes()
	req := newRequest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := NewPipeline(lifecycle, logging.NewNop()).Run(ctx, req)
	if outcome.Succeeded || !errors.Is(outcome.Err, context.Canceled) {
		t.Fatalf("outcome = %+v, want cancellation failure", outcome)
	}
	if rt.stops.Load() != 1 {
		t.Fatalf("stop calls = %d, want 1", rt.stops.Load())
	}
}

func TestRunStopErrorDoesNotChangeOutcome(t *testing.T) {
	lifecycle, rt := newFakes()
	rt.stopErr = errors.New("stop failed")

	outcome := NewPipeline(lifecycle, logging.NewNop()).Run(context.Background(), newRequest(t))
	if !outcome.Succeeded {
		t.Fatalf("outcome failed: %s", outcome.Message)
	}
}

func TestRunRecordsOutcome(t *testing.T) {
	lifecycle, rt := newFakes()
	var recorded []Outcome
	recorder := recorderFunc(func(_ context.Context, o Outcome) error {
		if rt.stops.Load() != 1 {
			t.Errorf("outcome recorded before runtime stopped")
		}
		recorded = append(recorded, o)
		return errors.New("disk full")
	})

	outcome := NewPipeline(lifecycle, logging.NewNop(), WithRecorder(recorder)).Run(context.Background(), newRequest(t))
	if !outcome.Succeeded {
		t.Fatalf("recorder error changed outcome: %s", outcome.Message)
	}
	if len(recorded) != 1 || recorded[0].RunID != outcome.RunID {
		t.Fatalf("recorded = %+v", recorded)
	}
}

func TestRunInsufficientSpace(t *testing.T) {
	lifecycle, _ := newFakes()
	req := newRequest(t)

	outcome := NewPipeline(lifecycle, logging.NewNop(), WithFreeSpaceReserve(^uint64(0)>>1)).Run(context.Background(), req)
	if outcome.Succeeded || !errors.Is(outcome.Err, ErrWrite) {
		t.Fatalf("outcome = %+v, want write failure", outcome)
	}
}

func TestNewRequest(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "survival")

	req, err := NewRequest(source, "", false)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.Output != filepath.Join(source, "survival.polar") {
		t.Fatalf("output = %q", req.Output)
	}

	req, err = NewRequest(source+"/", filepath.Join(dir, "custom.polar"), true)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.Source != source || req.Output != filepath.Join(dir, "custom.polar") || !req.Overwrite {
		t.Fatalf("request = %+v", req)
	}

	if _, err := NewRequest("  ", "", false); !errors.Is(err, ErrRead) {
		t.Fatalf("NewRequest(blank) error = %v", err)
	}
}

func TestWrapAndStage(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(ErrWrite, "write", cause)
	if err.Error() != "write failure: write: disk on fire" {
		t.Fatalf("Wrap message = %q", err.Error())
	}
	if !errors.Is(err, ErrWrite) || !errors.Is(err, cause) {
		t.Fatalf("Wrap lost chain: %v", err)
	}
	if Stage(err) != "write" || Stage(Wrap(ErrInitialization, "", nil)) != "start" || Stage(nil) != "" {
		t.Fatalf("unexpected stage classification")
	}
}

func TestFailedOutcome(t *testing.T) {
	_, err := NewRequest("", "", false)
	outcome := FailedOutcome(Request{}, err)
	if outcome.Succeeded || outcome.Stage != "read" || !strings.HasPrefix(outcome.Message, "failed to read world: ") {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Err.Error() != "read failure: resolve source: source directory is empty" {
		t.Fatalf("marked error wrapped twice: %v", outcome.Err)
	}

	outcome = FailedOutcome(Request{Output: "/x.polar"}, errors.New("no such thing"))
	if !errors.Is(outcome.Err, ErrRead) || outcome.Output != "/x.polar" {
		t.Fatalf("unmarked error outcome = %+v", outcome)
	}
	if outcome.Err.Error() != "read failure: read: no such thing" {
		t.Fatalf("unmarked error = %v", outcome.Err)
	}
}
