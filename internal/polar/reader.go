package polar

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"polarconv/internal/world"
)

// Info summarizes a container.
type Info struct {
	Version       int16
	DataVersion   int32
	Compression   Compression
	CompressedLen int
	PayloadLen    int
	MinSection    int8
	MaxSection    int8
	Chunks        int
	Sections      int
	BlockEntities int
}

// ReadInfo validates a container and reports its header and content counts.
func ReadInfo(r io.Reader) (Info, error) {
	info, snap, err := read(r)
	if err != nil {
		return Info{}, err
	}
	info.MinSection = snap.MinSection
	info.MaxSection = snap.MaxSection
	info.Chunks = len(snap.Chunks)
	for i := range snap.Chunks {
		chunk := &snap.Chunks[i]
		info.BlockEntities += len(chunk.BlockEntities)
		for j := range chunk.Sections {
			if !chunk.Sections[j].IsEmpty() {
				info.Sections++
			}
		}
	}
	return info, nil
}

// Decode reads a container back into a snapshot.
func Decode(r io.Reader) (*world.Snapshot, error) {
	_, snap, err := read(r)
	return snap, err
}

func read(r io.Reader) (Info, *world.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, nil, fmt.Errorf("read container: %w", err)
	}

	header := &decoder{r: bytes.NewReader(data)}
	magic := header.int32()
	if header.err != nil || magic != Magic {
		return Info{}, nil, fmt.Errorf("%w: bad magic", ErrInvalidContainer)
	}
	info := Info{
		Version:     header.int16(),
		DataVersion: header.varInt(),
		Compression: Compression(header.byte()),
		PayloadLen:  int(header.varInt()),
	}
	if header.err != nil {
		return Info{}, nil, fmt.Errorf("%w: header: %v", ErrInvalidContainer, header.err)
	}
	if info.Version != Version {
		return Info{}, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidContainer, info.Version)
	}
	body := data[len(data)-header.r.Len():]
	info.CompressedLen = len(body)

	switch info.Compression {
	case CompressionNone:
	case CompressionZstd:
		zr, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return Info{}, nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer zr.Close()
		body, err = zr.DecodeAll(body, make([]byte, 0, info.PayloadLen))
		if err != nil {
			return Info{}, nil, fmt.Errorf("%w: decompress: %v", ErrInvalidContainer, err)
		}
	default:
		return Info{}, nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidContainer, info.Compression)
	}
	if len(body) != info.PayloadLen {
		return Info{}, nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrInvalidContainer, len(body), info.PayloadLen)
	}

	d := &decoder{r: bytes.NewReader(body)}
	snap := readWorld(d)
	if d.err != nil {
		return Info{}, nil, fmt.Errorf("%w: payload: %v", ErrInvalidContainer, d.err)
	}
	if d.r.Len() != 0 {
		return Info{}, nil, fmt.Errorf("%w: %d trailing payload bytes", ErrInvalidContainer, d.r.Len())
	}
	snap.DataVersion = info.DataVersion
	return info, snap, nil
}

func readWorld(d *decoder) *world.Snapshot {
	snap := &world.Snapshot{
		MinSection: int8(d.byte()),
		MaxSection: int8(d.byte()),
		UserData:   d.byteArray(),
	}
	if d.err == nil && snap.MinSection > snap.MaxSection {
		d.err = fmt.Errorf("section range %d..%d", snap.MinSection, snap.MaxSection)
		return snap
	}
	count := d.length(2)
	snap.Chunks = make([]world.Chunk, 0, count)
	for i := 0; i < count && d.err == nil; i++ {
		snap.Chunks = append(snap.Chunks, readChunk(d, snap.SectionCount()))
	}
	return snap
}

func readChunk(d *decoder, sections int) world.Chunk {
	c := world.Chunk{X: d.varInt(), Z: d.varInt()}
	c.Sections = make([]world.Section, sections)
	for i := range c.Sections {
		c.Sections[i] = readSection(d)
	}

	entities := d.length(6)
	for i := 0; i < entities && d.err == nil; i++ {
		var be world.BlockEntity
		be.X, be.Y, be.Z = unpackBlockEntityIndex(d.int32())
		if d.bool() {
			be.ID = d.string()
		}
		if d.bool() {
			be.Data = readCompound(d)
		}
		c.BlockEntities = append(c.BlockEntities, be)
	}

	mask := d.int32()
	for h := range c.Heightmaps {
		if mask&(1<<h) != 0 {
			c.Heightmaps[h] = d.longs()
		}
	}
	c.UserData = d.byteArray()
	return c
}

func readSection(d *decoder) world.Section {
	var s world.Section
	if d.bool() {
		return s
	}
	s.BlockPalette = d.strings()
	if len(s.BlockPalette) > 1 {
		s.BlockStates = readIndices(d, world.SectionBlocks, len(s.BlockPalette))
	}
	s.BiomePalette = d.strings()
	if len(s.BiomePalette) > 1 {
		s.Biomes = readIndices(d, world.SectionBiomes, len(s.BiomePalette))
	}
	s.BlockLight = readLight(d)
	s.SkyLight = readLight(d)
	return s
}

func readIndices(d *decoder, count, paletteLen int) []uint16 {
	packed := d.longs()
	if d.err != nil {
		return nil
	}
	indices, err := unpackIndices(packed, count, paletteLen)
	if err != nil {
		d.err = err
	}
	return indices
}

func readLight(d *decoder) []byte {
	switch world.LightContent(d.byte()) {
	case world.LightPresent:
		return d.fixed(lightArrayBytes)
	case world.LightEmpty:
		return make([]byte, lightArrayBytes)
	case world.LightFull:
		full := make([]byte, lightArrayBytes)
		for i := range full {
			full[i] = 0xFF
		}
		return full
	default:
		return nil
	}
}
