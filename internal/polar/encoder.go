package polar

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"polarconv/internal/world"
)

// Options configures an Encoder.
type Options struct {
	Compression Compression
	Level       zstd.EncoderLevel
}

// Encoder turns snapshots into Polar containers. The output depends only on
// the snapshot and the options.
type Encoder struct {
	opts Options

	mu     sync.Mutex
	zstd   *zstd.Encoder
	closed bool
}

// NewEncoder returns an encoder. With zstd compression it owns a zstd
// encoder whose resources are released by Close.
func NewEncoder(opts Options) (*Encoder, error) {
	e := &Encoder{opts: opts}
	switch opts.Compression {
	case CompressionNone:
	case CompressionZstd:
		level := opts.Level
		if level == 0 {
			level = zstd.SpeedDefault
		}
		zw, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(level),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		e.zstd = zw
	default:
		return nil, fmt.Errorf("unsupported compression %s", opts.Compression)
	}
	return e, nil
}

// Compression reports the payload compression this encoder writes.
func (e *Encoder) Compression() Compression {
	return e.opts.Compression
}

// Encode serializes snap. Invalid snapshots fail with ErrInvalidSnapshot.
func (e *Encoder) Encode(snap *world.Snapshot) ([]byte, error) {
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	var payload buffer
	writeWorld(&payload, snap)
	if payload.err != nil {
		return nil, fmt.Errorf("write payload: %w", payload.err)
	}

	body := payload.Bytes()
	if e.opts.Compression == CompressionZstd {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return nil, ErrEncoderClosed
		}
		body = e.zstd.EncodeAll(body, make([]byte, 0, len(body)/4))
		e.mu.Unlock()
	} else if e.isClosed() {
		return nil, ErrEncoderClosed
	}

	var out buffer
	out.Grow(len(body) + 16)
	out.int32(Magic)
	out.int16(Version)
	out.varInt(snap.DataVersion)
	out.byte(byte(e.opts.Compression))
	out.varInt(int32(payload.Len()))
	out.raw(body)
	if out.err != nil {
		return nil, fmt.Errorf("write header: %w", out.err)
	}
	return out.Bytes(), nil
}

func (e *Encoder) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close releases the zstd encoder. It is safe to call more than once.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.zstd != nil {
		return e.zstd.Close()
	}
	return nil
}

func writeWorld(b *buffer, snap *world.Snapshot) {
	b.byte(byte(snap.MinSection))
	b.byte(byte(snap.MaxSection))
	b.byteArray(snap.UserData)
	b.varInt(int32(len(snap.Chunks)))
	for i := range snap.Chunks {
		writeChunk(b, &snap.Chunks[i])
	}
}

func writeChunk(b *buffer, c *world.Chunk) {
	b.varInt(c.X)
	b.varInt(c.Z)
	for i := range c.Sections {
		writeSection(b, &c.Sections[i])
	}

	b.varInt(int32(len(c.BlockEntities)))
	for _, be := range c.BlockEntities {
		b.int32(packBlockEntityIndex(be.X, be.Y, be.Z))
		b.bool(be.ID != "")
		if be.ID != "" {
			b.string(be.ID)
		}
		b.bool(len(be.Data) > 0)
		if len(be.Data) > 0 {
			b.raw(be.Data)
		}
	}

	var mask int32
	for h, values := range c.Heightmaps {
		if len(values) > 0 {
			mask |= 1 << h
		}
	}
	b.int32(mask)
	for _, values := range c.Heightmaps {
		if len(values) > 0 {
			b.longs(values)
		}
	}

	b.byteArray(c.UserData)
}

func writeSection(b *buffer, s *world.Section) {
	b.bool(s.IsEmpty())
	if s.IsEmpty() {
		return
	}

	b.strings(s.BlockPalette)
	if len(s.BlockPalette) > 1 {
		b.longs(packIndices(s.BlockStates, len(s.BlockPalette)))
	}
	b.strings(s.BiomePalette)
	if len(s.BiomePalette) > 1 {
		b.longs(packIndices(s.Biomes, len(s.BiomePalette)))
	}

	writeLight(b, s.BlockLightContent(), s.BlockLight)
	writeLight(b, s.SkyLightContent(), s.SkyLight)
}

func writeLight(b *buffer, content world.LightContent, data []byte) {
	b.byte(byte(content))
	if content == world.LightPresent {
		b.raw(data)
	}
}
