package anvil

import (
	"fmt"
	"math/bits"

	"github.com/Tnze/go-mc/level"
)

// bitsFor returns ceil(log2(n)) with a floor of min.
func bitsFor(n, min int) int {
	if n <= 1 {
		return min
	}
	b := bits.Len(uint(n - 1))
	if b < min {
		return min
	}
	return b
}

// unpackIndices expands a packed long array in which entries never span two
// longs, as written by Minecraft since 1.16.
func unpackIndices(data []int64, count, paletteLen, minBits int) ([]uint16, error) {
	bitsPerEntry := bitsFor(paletteLen, minBits)
	perLong := 64 / bitsPerEntry
	want := (count + perLong - 1) / perLong
	if len(data) != want {
		return nil, fmt.Errorf("packed data has %d longs, want %d for %d bits per entry", len(data), want, bitsPerEntry)
	}

	raw := make([]uint64, len(data))
	for i, v := range data {
		raw[i] = uint64(v)
	}
	storage := level.NewBitStorage(bitsPerEntry, count, raw)

	out := make([]uint16, count)
	for i := range out {
		value := storage.Get(i)
		if value >= paletteLen {
			return nil, fmt.Errorf("palette index %d at entry %d exceeds palette size %d", value, i, paletteLen)
		}
		out[i] = uint16(value)
	}
	return out, nil
}
