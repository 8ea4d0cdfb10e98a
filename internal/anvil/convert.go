package anvil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/Tnze/go-mc/nbt"

	"polarconv/internal/world"
)

const (
	blockMinBits = 4
	biomeMinBits = 1
	tagCompound  = 10
	tagEnd       = 0
)

// convertSection resolves palettes through the registry and expands packed
// indices. Sections without block data (light-only sections above or below
// the build range) report ok=false.
func (r *Reader) convertSection(raw *sectionNBT) (world.Section, bool, error) {
	if len(raw.BlockStates.Palette) == 0 {
		return world.Section{}, false, nil
	}

	var section world.Section
	section.BlockPalette = make([]string, len(raw.BlockStates.Palette))
	for i, state := range raw.BlockStates.Palette {
		canonical, err := r.resolver.BlockState(state.Name, state.Properties)
		if err != nil {
			return world.Section{}, false, err
		}
		section.BlockPalette[i] = canonical
	}
	if len(section.BlockPalette) > 1 {
		states, err := unpackIndices(raw.BlockStates.Data, world.SectionBlocks, len(section.BlockPalette), blockMinBits)
		if err != nil {
			return world.Section{}, false, fmt.Errorf("%w: block states: %v", ErrCorrupt, err)
		}
		section.BlockStates = states
	}

	biomes := raw.Biomes.Palette
	if len(biomes) == 0 {
		biomes = []string{"plains"}
	}
	section.BiomePalette = make([]string, len(biomes))
	for i, name := range biomes {
		canonical, err := r.resolver.Biome(name)
		if err != nil {
			return world.Section{}, false, err
		}
		section.BiomePalette[i] = canonical
	}
	if len(section.BiomePalette) > 1 {
		indices, err := unpackIndices(raw.Biomes.Data, world.SectionBiomes, len(section.BiomePalette), biomeMinBits)
		if err != nil {
			return world.Section{}, false, fmt.Errorf("%w: biomes: %v", ErrCorrupt, err)
		}
		section.Biomes = indices
	}

	if len(raw.BlockLight) == world.LightBytes {
		section.BlockLight = raw.BlockLight
	}
	if len(raw.SkyLight) == world.LightBytes {
		section.SkyLight = raw.SkyLight
	}
	return section, true, nil
}

// convertBlockEntity splits the id and position out of a block entity
// compound and re-encodes the remaining keys as a network NBT compound with
// sorted keys.
func convertBlockEntity(raw nbt.RawMessage) (world.BlockEntity, error) {
	var header blockEntityHeader
	if err := raw.Unmarshal(&header); err != nil {
		return world.BlockEntity{}, fmt.Errorf("%w: block entity: %v", ErrCorrupt, err)
	}
	var fields map[string]nbt.RawMessage
	if err := raw.Unmarshal(&fields); err != nil {
		return world.BlockEntity{}, fmt.Errorf("%w: block entity fields: %v", ErrCorrupt, err)
	}
	for _, key := range []string{"id", "x", "y", "z", "keepPacked"} {
		delete(fields, key)
	}

	be := world.BlockEntity{
		X:  header.X & 0xF,
		Y:  header.Y,
		Z:  header.Z & 0xF,
		ID: header.ID,
	}
	if len(fields) > 0 {
		be.Data = networkCompound(fields)
	}
	return be, nil
}

func networkCompound(fields map[string]nbt.RawMessage) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte(tagCompound)
	for _, k := range keys {
		value := fields[k]
		buf.WriteByte(value.Type)
		var size [2]byte
		binary.BigEndian.PutUint16(size[:], uint16(len(k)))
		buf.Write(size[:])
		buf.WriteString(k)
		buf.Write(value.Data)
	}
	buf.WriteByte(tagEnd)
	return buf.Bytes()
}

// assemble lays decoded chunks out over the union of their section ranges.
func assemble(chunks []decodedChunk, dataVersion int32) *world.Snapshot {
	snap := &world.Snapshot{
		DataVersion: dataVersion,
		MinSection:  world.DefaultMinSection,
		MaxSection:  world.DefaultMaxSection,
	}

	first := true
	for _, c := range chunks {
		for y := range c.sections {
			if first {
				snap.MinSection, snap.MaxSection = y, y
				first = false
				continue
			}
			if y < snap.MinSection {
				snap.MinSection = y
			}
			if y > snap.MaxSection {
				snap.MaxSection = y
			}
		}
	}

	count := snap.SectionCount()
	snap.Chunks = make([]world.Chunk, 0, len(chunks))
	for _, c := range chunks {
		chunk := c.chunk
		chunk.Sections = make([]world.Section, count)
		for y, section := range c.sections {
			chunk.Sections[int(y)-int(snap.MinSection)] = section
		}
		snap.Chunks = append(snap.Chunks, chunk)
	}
	snap.Sort()
	return snap
}
