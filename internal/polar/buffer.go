package polar

import (
	"bytes"
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
)

// buffer accumulates network-encoded values and keeps the first error.
type buffer struct {
	bytes.Buffer
	err error
}

func (b *buffer) put(v io.WriterTo) {
	if b.err != nil {
		return
	}
	_, b.err = v.WriteTo(&b.Buffer)
}

func (b *buffer) varInt(v int32)     { b.put(pk.VarInt(v)) }
func (b *buffer) int32(v int32)      { b.put(pk.Int(v)) }
func (b *buffer) int16(v int16)      { b.put(pk.Short(v)) }
func (b *buffer) byte(v byte)        { b.put(pk.UnsignedByte(v)) }
func (b *buffer) bool(v bool)        { b.put(pk.Boolean(v)) }
func (b *buffer) string(v string)    { b.put(pk.String(v)) }
func (b *buffer) byteArray(v []byte) { b.put(pk.ByteArray(v)) }

func (b *buffer) raw(v []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.Write(v)
}

func (b *buffer) strings(values []string) {
	b.varInt(int32(len(values)))
	for _, v := range values {
		b.string(v)
	}
}

func (b *buffer) longs(values []int64) {
	b.varInt(int32(len(values)))
	for _, v := range values {
		b.put(pk.Long(v))
	}
}

// decoder reads network-encoded values and keeps the first error.
type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) get(v io.ReaderFrom) {
	if d.err != nil {
		return
	}
	_, d.err = v.ReadFrom(d.r)
}

func (d *decoder) varInt() int32 {
	var v pk.VarInt
	d.get(&v)
	return int32(v)
}

func (d *decoder) int32() int32 {
	var v pk.Int
	d.get(&v)
	return int32(v)
}

func (d *decoder) int16() int16 {
	var v pk.Short
	d.get(&v)
	return int16(v)
}

func (d *decoder) byte() byte {
	var v pk.UnsignedByte
	d.get(&v)
	return byte(v)
}

func (d *decoder) bool() bool {
	var v pk.Boolean
	d.get(&v)
	return bool(v)
}

func (d *decoder) string() string {
	var v pk.String
	d.get(&v)
	return string(v)
}

func (d *decoder) byteArray() []byte {
	var v pk.ByteArray
	d.get(&v)
	return []byte(v)
}

// length reads a varint element count, rejecting counts the remaining input
// cannot hold.
func (d *decoder) length(minElemSize int) int {
	n := d.varInt()
	if d.err != nil {
		return 0
	}
	if n < 0 || int64(n)*int64(minElemSize) > int64(d.r.Len()) {
		d.err = ErrInvalidContainer
		return 0
	}
	return int(n)
}

func (d *decoder) fixed(n int) []byte {
	if d.err != nil {
		return nil
	}
	out := make([]byte, n)
	_, d.err = io.ReadFull(d.r, out)
	return out
}

func (d *decoder) strings() []string {
	n := d.length(1)
	if d.err != nil {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = d.string()
	}
	return out
}

func (d *decoder) longs() []int64 {
	n := d.length(8)
	if d.err != nil {
		return nil
	}
	out := make([]int64, n)
	for i := range out {
		var v pk.Long
		d.get(&v)
		out[i] = int64(v)
	}
	return out
}
