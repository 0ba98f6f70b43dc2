package shard

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"tauflow/internal/logging"
)

// Writer appends columns to a new logical table. Payload beyond
// Options.MemberBytes spills into the next numerically-suffixed member.
type Writer struct {
	base string
	opts Options
	enc  *zstd.Encoder

	f      *os.File
	bw     *bufio.Writer
	member int
	used   int64
	paths  []string

	rows   int
	cols   map[string]struct{}
	closed bool

	raw, packed, hdr []byte
}

// MemberPath returns the path of member n of the table rooted at base.
func MemberPath(base string, n int) string {
	return fmt.Sprintf("%s.%d", base, n)
}

func Create(base string, opts Options) (*Writer, error) {
	applyDefaults(&opts)
	w := &Writer{base: base, opts: opts, rows: -1, cols: map[string]struct{}{}}
	if opts.Compression == CompressionZstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w.enc = enc
	}
	if err := w.openMember(); err != nil {
		w.closeEncoder()
		return nil, err
	}
	return w, nil
}

// Members lists the member files written so far, in suffix order.
func (w *Writer) Members() []string { return append([]string(nil), w.paths...) }

// WriteColumn stores values as a column of the given width (1 for scalar
// columns, L for sequence columns laid out row-major).
func (w *Writer) WriteColumn(name string, values []float32, width int) error {
	if w.closed {
		return ErrClosed
	}
	if width < 1 {
		width = 1
	}
	if len(values)%width != 0 {
		return fmt.Errorf("shard: column %q: %d values do not divide into width %d", name, len(values), width)
	}
	if _, dup := w.cols[name]; dup {
		return fmt.Errorf("shard: column %q already written", name)
	}
	rows := len(values) / width
	if w.rows >= 0 && rows != w.rows {
		return &LengthMismatchError{Column: name, Want: w.rows, Got: rows}
	}

	if rows == 0 {
		if err := w.writeBlock(name, 0, 0, width, nil); err != nil {
			return err
		}
	}

	rowBytes := int64(width) * 4
	for first := 0; first < rows; {
		fit := (w.opts.MemberBytes - w.used) / rowBytes
		if fit <= 0 {
			if w.used > 0 {
				if err := w.rollover(); err != nil {
					return err
				}
				continue
			}
			// a single row larger than the budget still gets a member of its own
			fit = 1
		}
		n := min(int(fit), rows-first, w.opts.BlockRows)
		if err := w.writeBlock(name, first, n, width, values[first*width:(first+n)*width]); err != nil {
			return err
		}
		w.used += int64(n) * rowBytes
		first += n
	}

	w.cols[name] = struct{}{}
	w.rows = rows
	logging.L().Debug("shard: column written", "column", name, "rows", rows, "width", width, "members", len(w.paths))
	return nil
}

// Close flushes the open member. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.closeEncoder()
	return w.closeMember()
}

/*──────── internals ───────*/

func (w *Writer) writeBlock(name string, first, rows, width int, vals []float32) error {
	if w.bw == nil {
		return fmt.Errorf("shard: column %q: no open member: %w", name, ErrClosed)
	}
	h := blockHeader{name: name, first: first, rows: rows, width: width, codec: codecRaw}
	w.raw = putFloats(w.raw[:0], vals)
	payload := w.raw
	if w.enc != nil {
		h.codec = codecZstd
		w.packed = w.enc.EncodeAll(w.raw, w.packed[:0])
		payload = w.packed
	}
	w.hdr = h.marshal(w.hdr[:0])

	var hl, pl [binary.MaxVarintLen64]byte
	for _, part := range [][]byte{
		binary.AppendUvarint(hl[:0], uint64(len(w.hdr))),
		w.hdr,
		binary.AppendUvarint(pl[:0], uint64(len(payload))),
		payload,
	} {
		if _, err := w.bw.Write(part); err != nil {
			return fmt.Errorf("shard: write %s: %w", w.f.Name(), err)
		}
	}
	return nil
}

func (w *Writer) openMember() error {
	path := MemberPath(w.base, w.member)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w.f, w.bw, w.used = f, bufio.NewWriterSize(f, 1<<20), 0
	w.paths = append(w.paths, path)
	if _, err := w.bw.WriteString(magic); err != nil {
		return err
	}
	return nil
}

func (w *Writer) rollover() error {
	if err := w.closeMember(); err != nil {
		return err
	}
	w.member++
	return w.openMember()
}

func (w *Writer) closeMember() error {
	if w.f == nil {
		return nil
	}
	err := w.bw.Flush()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f, w.bw = nil, nil
	return err
}

func (w *Writer) closeEncoder() {
	if w.enc != nil {
		_ = w.enc.Close()
		w.enc = nil
	}
}
