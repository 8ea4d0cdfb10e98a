package convert

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInitialization    = errors.New("initialization failure")
	ErrRead              = errors.New("read failure")
	ErrEncode            = errors.New("encode failure")
	ErrWrite             = errors.New("write failure")
	ErrDestinationExists = errors.New("destination already exists")
)

// Wrap tags err with a failure marker and the operation that produced it.
// The marker should be one of the exported sentinel errors above.
func Wrap(marker error, operation string, err error) error {
	if marker == nil {
		marker = ErrWrite
	}
	operation = strings.TrimSpace(operation)
	switch {
	case err != nil && operation != "":
		return fmt.Errorf("%w: %s: %w", marker, operation, err)
	case err != nil:
		return fmt.Errorf("%w: %w", marker, err)
	case operation != "":
		return fmt.Errorf("%w: %s", marker, operation)
	default:
		return marker
	}
}

// Stage names the pipeline step a marker belongs to.
func Stage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInitialization):
		return "start"
	case errors.Is(err, ErrRead):
		return "read"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrWrite):
		return "write"
	default:
		return "unknown"
	}
}

func failurePrefix(marker error) string {
	switch marker {
	case ErrInitialization:
		return "failed to start conversion runtime"
	case ErrRead:
		return "failed to read world"
	case ErrEncode:
		return "failed to encode world"
	default:
		return "failed to save world"
	}
}

func failureHint(marker error, cause error) string {
	switch {
	case marker == ErrInitialization:
		return "another conversion may be holding the backend lock; wait for it to finish"
	case marker == ErrRead:
		return "check that the source is a 1.18+ world directory containing a region folder"
	case marker == ErrEncode:
		return "the world holds data the container cannot represent; see the error for the chunk"
	case errors.Is(cause, ErrDestinationExists):
		return "remove the existing container or rerun with --overwrite"
	default:
		return "check that the destination directory is writable and has free space"
	}
}
