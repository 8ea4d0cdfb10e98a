package testsupport

import (
	"bytes"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tnze/go-mc/nbt"
	"github.com/Tnze/go-mc/save/region"
	"github.com/klauspost/compress/zlib"
)

// DataVersion is the data version stamped on generated chunks (1.20.1).
const DataVersion int32 = 3465

// BlockState is one block palette entry.
type BlockState struct {
	Name       string            `nbt:"Name"`
	Properties map[string]string `nbt:"Properties"`
}

// SectionSpec describes one section of a generated chunk.
type SectionSpec struct {
	Y          int8
	Palette    []BlockState
	States     []uint16
	Biomes     []string
	BiomeIdx   []uint16
	BlockLight []byte
	SkyLight   []byte
}

// BlockEntitySpec describes one block entity. Positions are absolute.
type BlockEntitySpec struct {
	ID         string `nbt:"id"`
	X          int32  `nbt:"x"`
	Y          int32  `nbt:"y"`
	Z          int32  `nbt:"z"`
	CustomName string `nbt:"CustomName"`
}

// ChunkSpec describes a chunk written by WriteWorld.
type ChunkSpec struct {
	X, Z          int32
	Status        string
	DataVersion   int32
	Sections      []SectionSpec
	BlockEntities []BlockEntitySpec
	Heightmaps    map[string][]int64
}

type chunkNBT struct {
	DataVersion   int32              `nbt:"DataVersion"`
	XPos          int32              `nbt:"xPos"`
	YPos          int32              `nbt:"yPos"`
	ZPos          int32              `nbt:"zPos"`
	Status        string             `nbt:"Status"`
	Sections      []sectionNBT       `nbt:"sections"`
	BlockEntities []BlockEntitySpec  `nbt:"block_entities"`
	Heightmaps    map[string][]int64 `nbt:"Heightmaps"`
}

type paletteNBT[T any] struct {
	Palette []T     `nbt:"palette"`
	Data    []int64 `nbt:"data"`
}

type sectionNBT struct {
	Y           int8                   `nbt:"Y"`
	BlockStates paletteNBT[BlockState] `nbt:"block_states"`
	Biomes      paletteNBT[string]     `nbt:"biomes"`
	BlockLight  []byte                 `nbt:"BlockLight"`
	SkyLight    []byte                 `nbt:"SkyLight"`
}

type legacyChunkNBT struct {
	DataVersion int32 `nbt:"DataVersion"`
	Level       struct {
		XPos int32 `nbt:"xPos"`
		ZPos int32 `nbt:"zPos"`
	} `nbt:"Level"`
}

// StoneSection returns a section filled with a single block.
func StoneSection(y int8) SectionSpec {
	return SectionSpec{
		Y:       y,
		Palette: []BlockState{{Name: "minecraft:stone"}},
		Biomes:  []string{"minecraft:plains"},
	}
}

// LayeredSection returns a section whose lower half is stone and upper half
// is oak logs along the y axis.
func LayeredSection(y int8) SectionSpec {
	states := make([]uint16, 4096)
	for i := 2048; i < len(states); i++ {
		states[i] = 1
	}
	return SectionSpec{
		Y: y,
		Palette: []BlockState{
			{Name: "minecraft:stone"},
			{Name: "minecraft:oak_log", Properties: map[string]string{"axis": "y"}},
		},
		States: states,
		Biomes: []string{"minecraft:plains", "minecraft:forest"},
		BiomeIdx: func() []uint16 {
			idx := make([]uint16, 64)
			for i := 32; i < len(idx); i++ {
				idx[i] = 1
			}
			return idx
		}(),
	}
}

// NewWorld creates a world directory under a temp dir and writes chunks to it.
func NewWorld(t testing.TB, chunks ...ChunkSpec) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "world")
	WriteWorld(t, dir, chunks...)
	return dir
}

// WriteWorld writes chunks into Anvil region files under dir/region.
func WriteWorld(t testing.TB, dir string, chunks ...ChunkSpec) {
	t.Helper()

	regionDir := filepath.Join(dir, "region")
	if err := os.MkdirAll(regionDir, 0o755); err != nil {
		t.Fatalf("mkdir region dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "level.dat"), []byte{}, 0o644); err != nil {
		t.Fatalf("write level.dat: %v", err)
	}

	byRegion := make(map[[2]int32][]ChunkSpec)
	for _, c := range chunks {
		key := [2]int32{c.X >> 5, c.Z >> 5}
		byRegion[key] = append(byRegion[key], c)
	}
	for key, list := range byRegion {
		path := filepath.Join(regionDir, fmt.Sprintf("r.%d.%d.mca", key[0], key[1]))
		writeRegion(t, path, list, func(c ChunkSpec) any { return chunkValue(t, c) })
	}
}

// WriteLegacyChunk writes a pre-1.18 chunk (with a Level compound) into dir.
func WriteLegacyChunk(t testing.TB, dir string, x, z int32) {
	t.Helper()

	regionDir := filepath.Join(dir, "region")
	if err := os.MkdirAll(regionDir, 0o755); err != nil {
		t.Fatalf("mkdir region dir: %v", err)
	}
	path := filepath.Join(regionDir, fmt.Sprintf("r.%d.%d.mca", x>>5, z>>5))
	writeRegion(t, path, []ChunkSpec{{X: x, Z: z}}, func(c ChunkSpec) any {
		var legacy legacyChunkNBT
		legacy.DataVersion = 1343
		legacy.Level.XPos = c.X
		legacy.Level.ZPos = c.Z
		return legacy
	})
}

func writeRegion(t testing.TB, path string, chunks []ChunkSpec, value func(ChunkSpec) any) {
	t.Helper()

	reg, err := region.Create(path)
	if err != nil {
		t.Fatalf("create region %s: %v", path, err)
	}
	defer reg.Close()

	for _, c := range chunks {
		var buf bytes.Buffer
		buf.WriteByte(2)
		zw := zlib.NewWriter(&buf)
		if err := nbt.NewEncoder(zw).Encode(value(c), ""); err != nil {
			t.Fatalf("encode chunk %d,%d: %v", c.X, c.Z, err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("compress chunk %d,%d: %v", c.X, c.Z, err)
		}
		if err := reg.WriteSector(int(c.X&31), int(c.Z&31), buf.Bytes()); err != nil {
			t.Fatalf("write chunk %d,%d: %v", c.X, c.Z, err)
		}
	}
}

func chunkValue(t testing.TB, c ChunkSpec) chunkNBT {
	t.Helper()

	value := chunkNBT{
		DataVersion:   c.DataVersion,
		XPos:          c.X,
		YPos:          -4,
		ZPos:          c.Z,
		Status:        c.Status,
		BlockEntities: c.BlockEntities,
		Heightmaps:    c.Heightmaps,
	}
	if value.DataVersion == 0 {
		value.DataVersion = DataVersion
	}
	if value.Status == "" {
		value.Status = "minecraft:full"
	}
	if value.BlockEntities == nil {
		value.BlockEntities = []BlockEntitySpec{}
	}
	if value.Heightmaps == nil {
		value.Heightmaps = map[string][]int64{}
	}
	for _, s := range c.Sections {
		section := sectionNBT{
			Y:          s.Y,
			BlockLight: s.BlockLight,
			SkyLight:   s.SkyLight,
		}
		section.BlockStates.Palette = s.Palette
		section.Biomes.Palette = s.Biomes
		if len(s.Palette) > 1 {
			section.BlockStates.Data = PackIndices(s.States, len(s.Palette), 4)
		}
		if len(s.Biomes) > 1 {
			section.Biomes.Data = PackIndices(s.BiomeIdx, len(s.Biomes), 1)
		}
		value.Sections = append(value.Sections, section)
	}
	if value.Sections == nil {
		value.Sections = []sectionNBT{}
	}
	return value
}

// PackIndices packs palette indices into longs without spanning entries
// across long boundaries.
func PackIndices(indices []uint16, paletteLen, minBits int) []int64 {
	width := minBits
	if paletteLen > 1 {
		if b := bits.Len(uint(paletteLen - 1)); b > width {
			width = b
		}
	}
	perLong := 64 / width
	out := make([]int64, (len(indices)+perLong-1)/perLong)
	for i, idx := range indices {
		shift := (i % perLong) * width
		out[i/perLong] |= int64(uint64(idx) << shift)
	}
	return out
}
