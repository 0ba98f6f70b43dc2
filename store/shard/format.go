package shard

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Member layout: magic, then records of
//
//	uvarint(len(header)) header uvarint(len(payload)) payload
//
// where header is a protobuf wire-format message and payload holds
// little-endian float32 values, optionally zstd compressed.
const magic = "TFSHARD1"

type codec uint64

const (
	codecRaw  codec = 0
	codecZstd codec = 1
)

const (
	fieldName  protowire.Number = 1
	fieldFirst protowire.Number = 2
	fieldRows  protowire.Number = 3
	fieldWidth protowire.Number = 4
	fieldCodec protowire.Number = 5
)

type blockHeader struct {
	name  string
	first int
	rows  int
	width int
	codec codec
}

func (h blockHeader) marshal(b []byte) []byte {
	b = protowire.AppendTag(b, fieldName, protowire.BytesType)
	b = protowire.AppendString(b, h.name)
	b = protowire.AppendTag(b, fieldFirst, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.first))
	b = protowire.AppendTag(b, fieldRows, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.rows))
	b = protowire.AppendTag(b, fieldWidth, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.width))
	b = protowire.AppendTag(b, fieldCodec, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.codec))
	return b
}

func (h *blockHeader) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			h.name, b = v, b[n:]
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldFirst:
				h.first = int(v)
			case fieldRows:
				h.rows = int(v)
			case fieldWidth:
				h.width = int(v)
			case fieldCodec:
				h.codec = codec(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if h.name == "" {
		return errors.New("shard: block header without column name")
	}
	if h.width < 1 {
		return fmt.Errorf("shard: block of %q has width %d", h.name, h.width)
	}
	return nil
}

// countingReader tracks the file offset of a buffered sequential scan.
type countingReader struct {
	r   *bufio.Reader
	off int64
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.off++
	}
	return b, err
}

func (c *countingReader) readFull(p []byte) error {
	n, err := io.ReadFull(c.r, p)
	c.off += int64(n)
	return err
}

func (c *countingReader) skip(n int64) error {
	d, err := c.r.Discard(int(n))
	c.off += int64(d)
	return err
}

func (c *countingReader) uvarint() (uint64, error) {
	return binary.ReadUvarint(c)
}

func putFloats(dst []byte, src []float32) []byte {
	for _, v := range src {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func getFloats(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
}
