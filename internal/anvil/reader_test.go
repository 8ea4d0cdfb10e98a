package anvil

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"polarconv/internal/logging"
	"polarconv/internal/testsupport"
	"polarconv/internal/world"
)

func newTestReader() *Reader {
	return NewReader(world.NewRegistry(), logging.NewNop())
}

func TestReadAllDecodesChunks(t *testing.T) {
	dir := testsupport.NewWorld(t,
		testsupport.ChunkSpec{
			X: 1, Z: -1,
			Sections: []testsupport.SectionSpec{
				testsupport.StoneSection(-1),
				testsupport.LayeredSection(0),
			},
			BlockEntities: []testsupport.BlockEntitySpec{
				{ID: "minecraft:chest", X: 17, Y: 5, Z: -14, CustomName: "loot"},
			},
			Heightmaps: map[string][]int64{
				"MOTION_BLOCKING": make([]int64, 37),
				"UNKNOWN":         {1},
			},
		},
		testsupport.ChunkSpec{X: 0, Z: 0, Sections: []testsupport.SectionSpec{testsupport.StoneSection(2)}},
	)

	reader := newTestReader()
	snap, err := reader.ReadAll(context.Background(), dir)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if snap.DataVersion != testsupport.DataVersion {
		t.Fatalf("data version = %d, want %d", snap.DataVersion, testsupport.DataVersion)
	}
	if snap.MinSection != -1 || snap.MaxSection != 2 {
		t.Fatalf("section range = %d..%d, want -1..2", snap.MinSection, snap.MaxSection)
	}
	if len(snap.Chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(snap.Chunks))
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	first, second := snap.Chunks[0], snap.Chunks[1]
	if first.X != 0 || first.Z != 0 || second.X != 1 || second.Z != -1 {
		t.Fatalf("unexpected chunk order: (%d,%d) (%d,%d)", first.X, first.Z, second.X, second.Z)
	}
	if !first.Sections[0].IsEmpty() || first.Sections[3].IsEmpty() {
		t.Fatalf("chunk 0,0 sections not placed at their Y")
	}

	layered := second.Sections[1]
	if got := layered.BlockPalette; len(got) != 2 || got[1] != "minecraft:oak_log[axis=y]" {
		t.Fatalf("block palette = %v", got)
	}
	if layered.BlockStates[0] != 0 || layered.BlockStates[4095] != 1 {
		t.Fatalf("block states not unpacked: first=%d last=%d", layered.BlockStates[0], layered.BlockStates[4095])
	}
	if len(layered.Biomes) != world.SectionBiomes || layered.Biomes[63] != 1 {
		t.Fatalf("biomes not unpacked: %v", layered.Biomes)
	}
	if stone := second.Sections[0]; len(stone.BlockStates) != 0 || stone.BlockPalette[0] != "minecraft:stone" {
		t.Fatalf("single-entry section = %+v", stone)
	}

	if len(second.BlockEntities) != 1 {
		t.Fatalf("block entities = %d, want 1", len(second.BlockEntities))
	}
	be := second.BlockEntities[0]
	if be.X != 1 || be.Y != 5 || be.Z != 2 || be.ID != "minecraft:chest" {
		t.Fatalf("block entity = %+v", be)
	}
	if len(be.Data) == 0 || be.Data[0] != tagCompound || be.Data[len(be.Data)-1] != tagEnd {
		t.Fatalf("block entity data is not a network compound: %v", be.Data)
	}
	if !bytes.Contains(be.Data, []byte("CustomName")) || bytes.Contains(be.Data, []byte("id")) {
		t.Fatalf("block entity data keys wrong: %q", be.Data)
	}

	if got := second.Heightmaps[world.HeightmapMotionBlocking]; len(got) != 37 {
		t.Fatalf("motion blocking heightmap length = %d", len(got))
	}

	stats := reader.Stats()
	if stats.Regions != 2 || stats.Chunks != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestReadAllSkipsProtoChunks(t *testing.T) {
	dir := testsupport.NewWorld(t,
		testsupport.ChunkSpec{X: 0, Z: 0, Sections: []testsupport.SectionSpec{testsupport.StoneSection(0)}},
		testsupport.ChunkSpec{X: 1, Z: 0, Status: "minecraft:features", Sections: []testsupport.SectionSpec{testsupport.StoneSection(0)}},
	)

	reader := newTestReader()
	snap, err := reader.ReadAll(context.Background(), dir)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(snap.Chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(snap.Chunks))
	}
	if reader.Stats().SkippedProto != 1 {
		t.Fatalf("skipped proto = %d, want 1", reader.Stats().SkippedProto)
	}
}

func TestReadAllEmptyWorldUsesDefaultRange(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "region"), 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(dir, "region", "r.0.0.mca"), 100)
	testsupport.WriteFile(t, filepath.Join(dir, "region", "notes.txt"), 10)

	reader := newTestReader()
	snap, err := reader.ReadAll(context.Background(), dir)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(snap.Chunks) != 0 {
		t.Fatalf("chunks = %d, want 0", len(snap.Chunks))
	}
	if snap.MinSection != world.DefaultMinSection || snap.MaxSection != world.DefaultMaxSection {
		t.Fatalf("section range = %d..%d", snap.MinSection, snap.MaxSection)
	}
	if reader.Stats().SkippedRegion != 1 {
		t.Fatalf("skipped regions = %d, want 1", reader.Stats().SkippedRegion)
	}
}

func TestReadAllErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	testsupport.WriteFile(t, file, 1)

	legacy := filepath.Join(t.TempDir(), "legacy")
	testsupport.WriteLegacyChunk(t, legacy, 3, 3)

	tests := []struct {
		name string
		dir  string
		want error
	}{
		{name: "missing directory", dir: filepath.Join(t.TempDir(), "absent"), want: os.ErrNotExist},
		{name: "not a directory", dir: file, want: ErrNotWorld},
		{name: "no region directory", dir: t.TempDir(), want: ErrNotWorld},
		{name: "legacy layout", dir: legacy, want: ErrUnsupported},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestReader().ReadAll(context.Background(), tc.dir)
			if !errors.Is(err, tc.want) {
				t.Fatalf("ReadAll error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReadAllHonoursCancellation(t *testing.T) {
	dir := testsupport.NewWorld(t, testsupport.ChunkSpec{X: 0, Z: 0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestReader().ReadAll(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ReadAll error = %v, want context.Canceled", err)
	}
}

func TestReadAllFailsWhenRegistryClosed(t *testing.T) {
	dir := testsupport.NewWorld(t, testsupport.ChunkSpec{X: 0, Z: 0, Sections: []testsupport.SectionSpec{testsupport.StoneSection(0)}})
	registry := world.NewRegistry()
	registry.Close()

	_, err := NewReader(registry, logging.NewNop()).ReadAll(context.Background(), dir)
	if !errors.Is(err, world.ErrRegistryClosed) {
		t.Fatalf("ReadAll error = %v, want ErrRegistryClosed", err)
	}
}

func TestUnpackIndices(t *testing.T) {
	indices := make([]uint16, world.SectionBlocks)
	for i := range indices {
		indices[i] = uint16(i % 17)
	}
	packed := testsupport.PackIndices(indices, 17, 4)
	if len(packed) != 342 {
		t.Fatalf("packed longs = %d, want 342", len(packed))
	}
	got, err := unpackIndices(packed, world.SectionBlocks, 17, 4)
	if err != nil {
		t.Fatalf("unpackIndices: %v", err)
	}
	for i := range indices {
		if got[i] != indices[i] {
			t.Fatalf("entry %d = %d, want %d", i, got[i], indices[i])
		}
	}

	if _, err := unpackIndices(packed[:10], world.SectionBlocks, 17, 4); err == nil {
		t.Fatalf("expected error for short data")
	}
}

func TestBitsFor(t *testing.T) {
	tests := []struct {
		n, min, want int
	}{
		{1, 4, 4},
		{2, 1, 1},
		{3, 1, 2},
		{16, 4, 4},
		{17, 4, 5},
		{64, 1, 6},
	}
	for _, tc := range tests {
		if got := bitsFor(tc.n, tc.min); got != tc.want {
			t.Fatalf("bitsFor(%d, %d) = %d, want %d", tc.n, tc.min, got, tc.want)
		}
	}
}

func TestUnpackIndicesRejectsOutOfPaletteEntries(t *testing.T) {
	indices := make([]uint16, world.SectionBiomes)
	indices[5] = 2
	packed := testsupport.PackIndices(indices, 3, 1)
	if _, err := unpackIndices(packed, world.SectionBiomes, 3, 1); err != nil {
		t.Fatalf("unpackIndices: %v", err)
	}
	// Two bits per entry decode index 3 against a three-entry palette.
	indices[9] = 3
	packed = testsupport.PackIndices(indices, 3, 1)
	if _, err := unpackIndices(packed, world.SectionBiomes, 3, 1); err == nil {
		t.Fatalf("expected error for index outside the palette")
	}
}
