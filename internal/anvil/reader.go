package anvil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Tnze/go-mc/nbt"
	"github.com/Tnze/go-mc/save/region"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"polarconv/internal/logging"
	"polarconv/internal/world"
)

const (
	regionHeaderSize = 8 * 1024
	regionWidth      = 32

	compressionGzip     = 1
	compressionZlib     = 2
	compressionNone     = 3
	compressionLZ4      = 4
	compressionExternal = 0x80
)

var (
	// ErrNotWorld is returned when the source is not an Anvil world directory.
	ErrNotWorld = errors.New("not an anvil world")
	// ErrCorrupt marks region or chunk data that cannot be decoded.
	ErrCorrupt = errors.New("corrupt region data")
	// ErrUnsupported marks chunk data this reader cannot handle.
	ErrUnsupported = errors.New("unsupported chunk data")
)

var regionFilePattern = regexp.MustCompile(`^r\.(-?\d+)\.(-?\d+)\.mca$`)

// Resolver turns raw block states and biome names into canonical strings.
// *world.Registry implements it.
type Resolver interface {
	BlockState(name string, properties map[string]string) (string, error)
	Biome(name string) (string, error)
}

// Stats summarizes a completed read.
type Stats struct {
	Regions       int
	Chunks        int
	SkippedProto  int
	SkippedRegion int
}

// Reader decodes Anvil worlds.
type Reader struct {
	resolver Resolver
	logger   *slog.Logger
	stats    Stats
}

// NewReader returns a reader resolving block data through resolver.
func NewReader(resolver Resolver, logger *slog.Logger) *Reader {
	return &Reader{
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "anvil"),
	}
}

// Stats returns counters from the most recent ReadAll.
func (r *Reader) Stats() Stats {
	return r.stats
}

// ReadAll reads every chunk of the world rooted at dir. Cancellation is
// honoured between chunks.
func (r *Reader) ReadAll(ctx context.Context, dir string) (*world.Snapshot, error) {
	r.stats = Stats{}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open world directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotWorld, dir)
	}

	regionDir := filepath.Join(dir, "region")
	regions, err := listRegions(regionDir)
	if err != nil {
		return nil, err
	}

	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("reading world", logging.String("dir", dir), logging.Int("regions", len(regions)))

	var chunks []decodedChunk
	var dataVersion int32
	for _, reg := range regions {
		regionChunks, version, err := r.readRegion(ctx, regionDir, reg)
		if err != nil {
			return nil, err
		}
		if version > dataVersion {
			dataVersion = version
		}
		chunks = append(chunks, regionChunks...)
	}

	snap := assemble(chunks, dataVersion)
	r.stats.Chunks = len(snap.Chunks)
	logger.Debug("world read",
		logging.Int("chunks", r.stats.Chunks),
		logging.Int("skipped_proto", r.stats.SkippedProto),
		logging.Int("skipped_regions", r.stats.SkippedRegion),
	)
	return snap, nil
}

type regionFile struct {
	name string
	x, z int
}

func listRegions(regionDir string) ([]regionFile, error) {
	entries, err := os.ReadDir(regionDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: missing region directory %s", ErrNotWorld, regionDir)
		}
		return nil, fmt.Errorf("list region files: %w", err)
	}

	var regions []regionFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := regionFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		x, _ := strconv.Atoi(m[1])
		z, _ := strconv.Atoi(m[2])
		regions = append(regions, regionFile{name: entry.Name(), x: x, z: z})
	}
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].x != regions[j].x {
			return regions[i].x < regions[j].x
		}
		return regions[i].z < regions[j].z
	})
	return regions, nil
}

// decodedChunk keeps sections keyed by their Y until the world's section
// range is known.
type decodedChunk struct {
	chunk    world.Chunk
	sections map[int8]world.Section
}

func (r *Reader) readRegion(ctx context.Context, regionDir string, rf regionFile) ([]decodedChunk, int32, error) {
	path := filepath.Join(regionDir, rf.name)
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open region %s: %w", rf.name, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("stat region %s: %w", rf.name, err)
	}
	if info.Size() < regionHeaderSize {
		_ = file.Close()
		r.stats.SkippedRegion++
		r.logger.Debug("skipping region without header", logging.String("region", rf.name), logging.Int64("size", info.Size()))
		return nil, 0, nil
	}

	reg, err := region.Load(readOnlyFile{file})
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("%w: %s header: %v", ErrCorrupt, rf.name, err)
	}
	defer reg.Close()
	r.stats.Regions++

	var chunks []decodedChunk
	var dataVersion int32
	for z := 0; z < regionWidth; z++ {
		for x := 0; x < regionWidth; x++ {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			if !reg.ExistSector(x, z) {
				continue
			}
			cx := int32(rf.x*regionWidth + x)
			cz := int32(rf.z*regionWidth + z)

			data, err := reg.ReadSector(x, z)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %s chunk %d,%d: %v", ErrCorrupt, rf.name, cx, cz, err)
			}
			decoded, version, ok, err := r.readChunk(regionDir, data, cx, cz)
			if err != nil {
				return nil, 0, fmt.Errorf("%s chunk %d,%d: %w", rf.name, cx, cz, err)
			}
			if !ok {
				r.stats.SkippedProto++
				continue
			}
			if version > dataVersion {
				dataVersion = version
			}
			chunks = append(chunks, decoded)
		}
	}
	return chunks, dataVersion, nil
}

func (r *Reader) readChunk(regionDir string, data []byte, cx, cz int32) (decodedChunk, int32, bool, error) {
	payload, err := openPayload(regionDir, data, cx, cz)
	if err != nil {
		return decodedChunk{}, 0, false, err
	}
	defer payload.Close()

	var raw chunkNBT
	if _, err := nbt.NewDecoder(payload).Decode(&raw); err != nil {
		return decodedChunk{}, 0, false, fmt.Errorf("%w: nbt: %v", ErrCorrupt, err)
	}
	if raw.Level.Type != 0 {
		return decodedChunk{}, 0, false, fmt.Errorf("%w: chunk layout predates 1.18 (data version %d)", ErrUnsupported, raw.DataVersion)
	}
	if status := strings.TrimPrefix(raw.Status, "minecraft:"); status != "" && status != "full" {
		return decodedChunk{}, 0, false, nil
	}

	decoded := decodedChunk{
		chunk:    world.Chunk{X: cx, Z: cz},
		sections: make(map[int8]world.Section, len(raw.Sections)),
	}
	for i := range raw.Sections {
		rawSection := &raw.Sections[i]
		section, ok, err := r.convertSection(rawSection)
		if err != nil {
			return decodedChunk{}, 0, false, fmt.Errorf("section %d: %w", rawSection.Y, err)
		}
		if ok {
			decoded.sections[rawSection.Y] = section
		}
	}

	for _, entity := range raw.BlockEntities {
		be, err := convertBlockEntity(entity)
		if err != nil {
			return decodedChunk{}, 0, false, err
		}
		decoded.chunk.BlockEntities = append(decoded.chunk.BlockEntities, be)
	}

	for name, values := range raw.Heightmaps {
		if h, ok := world.HeightmapByName(name); ok {
			decoded.chunk.Heightmaps[h] = values
		}
	}
	return decoded, raw.DataVersion, true, nil
}

// openPayload returns a reader over the uncompressed NBT of one chunk.
func openPayload(regionDir string, data []byte, cx, cz int32) (io.ReadCloser, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty sector", ErrCorrupt)
	}
	compression := data[0]
	body := data[1:]
	if compression&compressionExternal != 0 {
		compression &^= compressionExternal
		external := filepath.Join(regionDir, fmt.Sprintf("c.%d.%d.mcc", cx, cz))
		raw, err := os.ReadFile(external)
		if err != nil {
			return nil, fmt.Errorf("%w: read external chunk: %v", ErrCorrupt, err)
		}
		body = raw
	}

	switch compression {
	case compressionGzip:
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrCorrupt, err)
		}
		return zr, nil
	case compressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrCorrupt, err)
		}
		return zr, nil
	case compressionNone:
		return io.NopCloser(bytes.NewReader(body)), nil
	case compressionLZ4:
		return nil, fmt.Errorf("%w: lz4 compressed chunks", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: unknown compression type %d", ErrCorrupt, compression)
	}
}

// readOnlyFile lets region.Load operate on a file opened without write
// access; the reader never writes sectors.
type readOnlyFile struct {
	*os.File
}

func (readOnlyFile) Write([]byte) (int, error) {
	return 0, errors.New("region opened read-only")
}
