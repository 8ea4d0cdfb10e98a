package polar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Tnze/go-mc/level"
	"github.com/klauspost/compress/zstd"
)

const (
	// Magic is "Polr" as a big-endian int32.
	Magic int32 = 0x506F6C72
	// Version is the container version written by this package.
	Version int16 = 7

	lightArrayBytes = 2048
)

// Compression identifies how the container payload is stored.
type Compression byte

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", byte(c))
	}
}

var (
	// ErrInvalidSnapshot marks snapshots the encoder refuses to serialize.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrEncoderClosed is returned by Encode after Close.
	ErrEncoderClosed = errors.New("encoder closed")
	// ErrInvalidContainer marks data that is not a readable Polar container.
	ErrInvalidContainer = errors.New("invalid polar container")
)

// ParseCompression maps a configuration value to a Compression.
func ParseCompression(value string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "zstd":
		return CompressionZstd, nil
	case "none":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", value)
	}
}

// ParseLevel maps a configuration value to a zstd encoder level.
func ParseLevel(value string) (zstd.EncoderLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "fastest":
		return zstd.SpeedFastest, nil
	case "", "default":
		return zstd.SpeedDefault, nil
	case "better":
		return zstd.SpeedBetterCompression, nil
	case "best":
		return zstd.SpeedBestCompression, nil
	default:
		return 0, fmt.Errorf("unknown zstd level %q", value)
	}
}

// bitsPerEntry is the packed width for a palette of n entries.
func bitsPerEntry(n int) int {
	width := 1
	for 1<<width < n {
		width++
	}
	return width
}

func packIndices(indices []uint16, paletteLen int) []int64 {
	storage := level.NewBitStorage(bitsPerEntry(paletteLen), len(indices), nil)
	for i, idx := range indices {
		storage.Set(i, int(idx))
	}
	raw := storage.Raw()
	out := make([]int64, len(raw))
	for i, v := range raw {
		out[i] = int64(v)
	}
	return out
}

func unpackIndices(data []int64, count, paletteLen int) ([]uint16, error) {
	width := bitsPerEntry(paletteLen)
	perLong := 64 / width
	if want := (count + perLong - 1) / perLong; len(data) != want {
		return nil, fmt.Errorf("%w: packed data has %d longs, want %d", ErrInvalidContainer, len(data), want)
	}
	raw := make([]uint64, len(data))
	for i, v := range data {
		raw[i] = uint64(v)
	}
	storage := level.NewBitStorage(width, count, raw)
	out := make([]uint16, count)
	for i := range out {
		out[i] = uint16(storage.Get(i))
	}
	return out, nil
}

// packBlockEntityIndex stores chunk-relative x and z with an absolute y.
func packBlockEntityIndex(x, y, z int32) int32 {
	index := (x & 0xF) | (z&0xF)<<28
	abs := y
	if y < 0 {
		abs = -y
		index |= 1 << 27
	}
	index |= (abs & 0x7FFFFF) << 4
	return index
}

func unpackBlockEntityIndex(index int32) (x, y, z int32) {
	x = index & 0xF
	z = int32(uint32(index) >> 28)
	y = (index >> 4) & 0x7FFFFF
	if index&(1<<27) != 0 {
		y = -y
	}
	return x, y, z
}
