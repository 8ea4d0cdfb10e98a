package world

import (
	"errors"
	"fmt"
	"sort"
)

const (
	// SectionBlocks is the number of block entries in a 16x16x16 section.
	SectionBlocks = 16 * 16 * 16
	// SectionBiomes is the number of biome entries in a section (4x4x4 cells).
	SectionBiomes = 4 * 4 * 4
	// LightBytes is the size of a nibble light array for one section.
	LightBytes = SectionBlocks / 2

	// DefaultMinSection and DefaultMaxSection describe the overworld height
	// range (-64..319) used when a world holds no chunks.
	DefaultMinSection int8 = -4
	DefaultMaxSection int8 = 19
)

// LightContent describes how a section's light array is stored.
type LightContent byte

const (
	LightMissing LightContent = iota
	LightEmpty
	LightFull
	LightPresent
)

// Heightmap indexes the heightmaps a chunk may carry. The order is the bit
// order of the container's heightmap mask.
type Heightmap int

const (
	HeightmapMotionBlocking Heightmap = iota
	HeightmapMotionBlockingNoLeaves
	HeightmapOceanFloor
	HeightmapOceanFloorWG
	HeightmapWorldSurface
	HeightmapWorldSurfaceWG
	HeightmapCount
)

var heightmapNames = [HeightmapCount]string{
	"MOTION_BLOCKING",
	"MOTION_BLOCKING_NO_LEAVES",
	"OCEAN_FLOOR",
	"OCEAN_FLOOR_WG",
	"WORLD_SURFACE",
	"WORLD_SURFACE_WG",
}

// HeightmapByName maps a heightmap key as stored in region files.
func HeightmapByName(name string) (Heightmap, bool) {
	for i, candidate := range heightmapNames {
		if candidate == name {
			return Heightmap(i), true
		}
	}
	return 0, false
}

func (h Heightmap) String() string {
	if h < 0 || h >= HeightmapCount {
		return fmt.Sprintf("Heightmap(%d)", int(h))
	}
	return heightmapNames[h]
}

// Section is one 16-block-tall slice of a chunk.
//
// BlockStates and Biomes hold palette indices and are only populated when the
// matching palette has more than one entry. A section with a nil BlockPalette
// is empty (not present in the source world).
type Section struct {
	BlockPalette []string
	BlockStates  []uint16
	BiomePalette []string
	Biomes       []uint16
	BlockLight   []byte
	SkyLight     []byte
}

// IsEmpty reports whether the section carries no block data.
func (s *Section) IsEmpty() bool {
	return len(s.BlockPalette) == 0
}

// BlockLightContent classifies the block light array.
func (s *Section) BlockLightContent() LightContent {
	return classifyLight(s.BlockLight)
}

// SkyLightContent classifies the sky light array.
func (s *Section) SkyLightContent() LightContent {
	return classifyLight(s.SkyLight)
}

func classifyLight(data []byte) LightContent {
	if len(data) != LightBytes {
		return LightMissing
	}
	allZero, allFull := true, true
	for _, b := range data {
		if b != 0 {
			allZero = false
		}
		if b != 0xFF {
			allFull = false
		}
		if !allZero && !allFull {
			return LightPresent
		}
	}
	if allZero {
		return LightEmpty
	}
	return LightFull
}

// BlockEntity is a block carrying extra data (chests, signs, ...). X and Z are
// chunk-relative (0..15), Y is absolute. Data is a network-format NBT
// compound without the id and position keys, or nil.
type BlockEntity struct {
	X, Y, Z int32
	ID      string
	Data    []byte
}

// Chunk is a full-height column of sections.
type Chunk struct {
	X, Z          int32
	Sections      []Section
	BlockEntities []BlockEntity
	Heightmaps    [HeightmapCount][]int64
	UserData      []byte
}

// Snapshot is every chunk read from one world.
type Snapshot struct {
	DataVersion int32
	MinSection  int8
	MaxSection  int8
	UserData    []byte
	Chunks      []Chunk
}

// SectionCount returns the number of sections each chunk must carry.
func (s *Snapshot) SectionCount() int {
	return int(s.MaxSection) - int(s.MinSection) + 1
}

// Sort orders chunks by X, then Z, and block entities by position so that
// encoding is independent of read order.
func (s *Snapshot) Sort() {
	sort.Slice(s.Chunks, func(i, j int) bool {
		a, b := s.Chunks[i], s.Chunks[j]
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	for i := range s.Chunks {
		entities := s.Chunks[i].BlockEntities
		sort.Slice(entities, func(a, b int) bool {
			ea, eb := entities[a], entities[b]
			if ea.Y != eb.Y {
				return ea.Y < eb.Y
			}
			if ea.Z != eb.Z {
				return ea.Z < eb.Z
			}
			return ea.X < eb.X
		})
	}
}

// Validate checks the structural invariants the encoder relies on.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("snapshot is nil")
	}
	if s.MinSection > s.MaxSection {
		return fmt.Errorf("invalid section range %d..%d", s.MinSection, s.MaxSection)
	}
	count := s.SectionCount()
	for i := range s.Chunks {
		chunk := &s.Chunks[i]
		if len(chunk.Sections) != count {
			return fmt.Errorf("chunk %d,%d: has %d sections, want %d", chunk.X, chunk.Z, len(chunk.Sections), count)
		}
		for y := range chunk.Sections {
			if err := chunk.Sections[y].validate(); err != nil {
				return fmt.Errorf("chunk %d,%d section %d: %w", chunk.X, chunk.Z, int(s.MinSection)+y, err)
			}
		}
	}
	return nil
}

func (s *Section) validate() error {
	if s.IsEmpty() {
		return nil
	}
	if err := validatePalette("block", s.BlockPalette, s.BlockStates, SectionBlocks); err != nil {
		return err
	}
	if len(s.BiomePalette) == 0 {
		return errors.New("biome palette is empty")
	}
	if err := validatePalette("biome", s.BiomePalette, s.Biomes, SectionBiomes); err != nil {
		return err
	}
	for _, light := range [][]byte{s.BlockLight, s.SkyLight} {
		if light != nil && len(light) != LightBytes {
			return fmt.Errorf("light array has %d bytes, want %d", len(light), LightBytes)
		}
	}
	return nil
}

func validatePalette(kind string, palette []string, indices []uint16, size int) error {
	if len(palette) <= 1 {
		return nil
	}
	if len(indices) != size {
		return fmt.Errorf("%s data has %d entries, want %d", kind, len(indices), size)
	}
	for _, idx := range indices {
		if int(idx) >= len(palette) {
			return fmt.Errorf("%s index %d out of palette range %d", kind, idx, len(palette))
		}
	}
	return nil
}
