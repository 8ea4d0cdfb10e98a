package anvil

import (
	"github.com/Tnze/go-mc/nbt"
)

type chunkNBT struct {
	DataVersion   int32              `nbt:"DataVersion"`
	XPos          int32              `nbt:"xPos"`
	ZPos          int32              `nbt:"zPos"`
	Status        string             `nbt:"Status"`
	Sections      []sectionNBT       `nbt:"sections"`
	BlockEntities []nbt.RawMessage   `nbt:"block_entities"`
	Heightmaps    map[string][]int64 `nbt:"Heightmaps"`
	Level         nbt.RawMessage     `nbt:"Level"`
}

type sectionNBT struct {
	Y           int8 `nbt:"Y"`
	BlockStates struct {
		Palette []blockStateNBT `nbt:"palette"`
		Data    []int64         `nbt:"data"`
	} `nbt:"block_states"`
	Biomes struct {
		Palette []string `nbt:"palette"`
		Data    []int64  `nbt:"data"`
	} `nbt:"biomes"`
	BlockLight []byte `nbt:"BlockLight"`
	SkyLight   []byte `nbt:"SkyLight"`
}

type blockStateNBT struct {
	Name       string            `nbt:"Name"`
	Properties map[string]string `nbt:"Properties"`
}

type blockEntityHeader struct {
	ID string `nbt:"id"`
	X  int32  `nbt:"x"`
	Y  int32  `nbt:"y"`
	Z  int32  `nbt:"z"`
}
