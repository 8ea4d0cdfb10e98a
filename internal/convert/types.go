package convert

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"polarconv/internal/world"
)

// ChunkSourceReader reads every chunk of a world directory.
type ChunkSourceReader interface {
	ReadAll(ctx context.Context, dir string) (*world.Snapshot, error)
}

// ContainerEncoder serializes a snapshot into container bytes.
type ContainerEncoder interface {
	Encode(snap *world.Snapshot) ([]byte, error)
}

// Runtime is a started backing service. Stop must be safe to call more than
// once.
type Runtime interface {
	Reader() ChunkSourceReader
	Encoder() ContainerEncoder
	Stop() error
}

// Lifecycle starts a Runtime for one run.
type Lifecycle interface {
	Start(ctx context.Context) (Runtime, error)
}

// Recorder persists outcomes. Errors are logged and otherwise ignored.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome) error
}

// Request is one conversion job.
type Request struct {
	Source    string
	Output    string
	Overwrite bool
}

// NewRequest cleans source and output, defaulting the output to
// DefaultOutput(source) when empty.
func NewRequest(source, output string, overwrite bool) (Request, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Request{}, Wrap(ErrRead, "resolve source", errEmptySource)
	}
	absSource, err := filepath.Abs(source)
	if err != nil {
		return Request{}, Wrap(ErrRead, "resolve source", err)
	}

	output = strings.TrimSpace(output)
	if output == "" {
		output = DefaultOutput(absSource)
	}
	absOutput, err := filepath.Abs(output)
	if err != nil {
		return Request{}, Wrap(ErrWrite, "resolve output", err)
	}
	return Request{Source: absSource, Output: absOutput, Overwrite: overwrite}, nil
}

// DefaultOutput places the container inside the world directory, named after
// the world.
func DefaultOutput(source string) string {
	clean := filepath.Clean(source)
	return filepath.Join(clean, filepath.Base(clean)+".polar")
}

// Outcome is the single result of a run.
type Outcome struct {
	Succeeded bool
	Message   string

	RunID    string
	Source   string
	Output   string
	Stage    string
	Chunks   int
	Bytes    int
	Duration time.Duration
	Err      error
}
