package polar

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	tagEnd byte = iota
	tagByte
	tagShort
	tagInt
	tagLong
	tagFloat
	tagDouble
	tagByteArray
	tagString
	tagList
	tagCompound
	tagIntArray
	tagLongArray
)

const maxNBTDepth = 512

// readCompound copies one unnamed network NBT compound, including its type
// byte, from the decoder.
func readCompound(d *decoder) []byte {
	if d.err != nil {
		return nil
	}
	start := int(d.r.Size()) - d.r.Len()
	tag, err := d.r.ReadByte()
	if err != nil {
		d.err = err
		return nil
	}
	if tag != tagCompound {
		d.err = fmt.Errorf("block entity data has tag type %d, want compound", tag)
		return nil
	}
	if err := skipPayload(d.r, tagCompound, 0); err != nil {
		d.err = fmt.Errorf("block entity data: %w", err)
		return nil
	}
	end := int(d.r.Size()) - d.r.Len()

	out := make([]byte, end-start)
	if _, err := d.r.ReadAt(out, int64(start)); err != nil {
		d.err = err
		return nil
	}
	return out
}

type nbtReader interface {
	io.Reader
	io.ByteReader
	io.Seeker
}

func skipPayload(r nbtReader, tag byte, depth int) error {
	if depth > maxNBTDepth {
		return fmt.Errorf("nbt nested deeper than %d", maxNBTDepth)
	}
	switch tag {
	case tagByte:
		return skip(r, 1)
	case tagShort:
		return skip(r, 2)
	case tagInt, tagFloat:
		return skip(r, 4)
	case tagLong, tagDouble:
		return skip(r, 8)
	case tagByteArray:
		return skipArray(r, 1)
	case tagIntArray:
		return skipArray(r, 4)
	case tagLongArray:
		return skipArray(r, 8)
	case tagString:
		var n uint16
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return err
		}
		return skip(r, int64(n))
	case tagList:
		elem, err := r.ReadByte()
		if err != nil {
			return err
		}
		var n int32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return err
		}
		for i := int32(0); i < n; i++ {
			if err := skipPayload(r, elem, depth+1); err != nil {
				return err
			}
		}
		return nil
	case tagCompound:
		for {
			child, err := r.ReadByte()
			if err != nil {
				return err
			}
			if child == tagEnd {
				return nil
			}
			if err := skipPayload(r, tagString, depth); err != nil {
				return err
			}
			if err := skipPayload(r, child, depth+1); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown nbt tag type %d", tag)
	}
}

func skipArray(r nbtReader, elemSize int64) error {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("negative nbt array length %d", n)
	}
	return skip(r, int64(n)*elemSize)
}

func skip(r nbtReader, n int64) error {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if cur+n > end {
		return io.ErrUnexpectedEOF
	}
	_, err = r.Seek(cur+n, io.SeekStart)
	return err
}
