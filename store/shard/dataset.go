package shard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"tauflow/internal/logging"
)

type segment struct {
	member int
	offset int64
	length int64
	first  int
	rows   int
	codec  codec
}

type column struct {
	name  string
	width int
	rows  int
	segs  []segment
}

// Dataset is a read-only logical table over one or more member files.
// Reads are safe for concurrent use.
type Dataset struct {
	paths []string
	files []*os.File
	dec   *zstd.Decoder

	cols  map[string]*column
	order []string
	rows  int

	// index maps view rows to physical rows; nil for the full table.
	index []int
	owner bool
}

// Open exposes the given members as a single logical table. A single path
// without a numeric suffix is treated as a base name and expanded to its
// members. Members are read in numeric suffix order.
func Open(paths ...string) (*Dataset, error) {
	members, err := resolveMembers(paths)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	d := &Dataset{paths: members, dec: dec, cols: map[string]*column{}, owner: true}
	for i, p := range members {
		f, err := os.Open(p)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.files = append(d.files, f)
		if err := d.scan(i, f); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("shard: %s: %w", p, err)
		}
	}
	if err := d.checkLengths(); err != nil {
		_ = d.Close()
		return nil, err
	}
	logging.L().Debug("shard: opened", "members", len(members), "columns", len(d.order), "rows", d.rows)
	return d, nil
}

func (d *Dataset) Rows() int {
	if d.index != nil {
		return len(d.index)
	}
	return d.rows
}

// Columns returns column names in first-written order.
func (d *Dataset) Columns() []string { return append([]string(nil), d.order...) }

func (d *Dataset) Has(name string) bool {
	_, ok := d.cols[name]
	return ok
}

// Width returns the stored per-row width of a column (1 for scalars).
func (d *Dataset) Width(name string) (int, error) {
	c, ok := d.cols[name]
	if !ok {
		return 0, &MissingColumnError{Name: name}
	}
	return c.width, nil
}

// Members returns the member files backing the table.
func (d *Dataset) Members() []string { return append([]string(nil), d.paths...) }

// ReadColumn fills dst with rows [start, stop) of column name. With
// seqLen <= 0 the column must be scalar and dst receives stop-start values.
// Otherwise dst receives seqLen values per row: the first seqLen stored
// entries, zero-padded when the column is narrower.
func (d *Dataset) ReadColumn(name string, start, stop, seqLen int, dst []float32) error {
	c, ok := d.cols[name]
	if !ok {
		return &MissingColumnError{Name: name}
	}
	if start < 0 || stop > d.Rows() || start > stop {
		return fmt.Errorf("shard: rows [%d, %d) out of range for %d-row table", start, stop, d.Rows())
	}
	out := seqLen
	if seqLen <= 0 {
		if c.width != 1 {
			return fmt.Errorf("shard: column %q is a sequence of width %d, read as scalar", name, c.width)
		}
		out = 1
	}
	if len(dst) < (stop-start)*out {
		return fmt.Errorf("shard: destination holds %d values, need %d", len(dst), (stop-start)*out)
	}
	if d.index == nil {
		return d.readPhysical(c, start, stop, out, dst)
	}
	// contiguous runs of the view map to single physical reads
	for i := start; i < stop; {
		j := i + 1
		for j < stop && d.index[j] == d.index[j-1]+1 {
			j++
		}
		if err := d.readPhysical(c, d.index[i], d.index[j-1]+1, out, dst[(i-start)*out:]); err != nil {
			return err
		}
		i = j
	}
	return nil
}

// Column reads a whole column, returning its values and width.
func (d *Dataset) Column(name string) ([]float32, int, error) {
	w, err := d.Width(name)
	if err != nil {
		return nil, 0, err
	}
	seq := w
	if w == 1 {
		seq = 0
	}
	buf := make([]float32, d.Rows()*w)
	if err := d.ReadColumn(name, 0, d.Rows(), seq, buf); err != nil {
		return nil, 0, err
	}
	return buf, w, nil
}

// Filter returns a view containing only the rows where mask is true, in
// file order. The view shares the members of d and must not outlive it.
func (d *Dataset) Filter(mask []bool) (*Dataset, error) {
	if len(mask) != d.Rows() {
		return nil, &LengthMismatchError{Column: "<selection>", Want: d.Rows(), Got: len(mask)}
	}
	idx := make([]int, 0, len(mask))
	for i, keep := range mask {
		if !keep {
			continue
		}
		if d.index != nil {
			idx = append(idx, d.index[i])
		} else {
			idx = append(idx, i)
		}
	}
	v := *d
	v.index, v.owner = idx, false
	return &v, nil
}

func (d *Dataset) Close() error {
	if !d.owner {
		return nil
	}
	var errs []error
	for _, f := range d.files {
		errs = append(errs, f.Close())
	}
	d.files = nil
	if d.dec != nil {
		d.dec.Close()
		d.dec = nil
	}
	return errors.Join(errs...)
}

/*──────── internals ───────*/

func (d *Dataset) scan(member int, f *os.File) error {
	cr := &countingReader{r: bufio.NewReaderSize(f, 1<<16)}
	head := make([]byte, len(magic))
	if err := cr.readFull(head); err != nil || string(head) != magic {
		return errors.New("not a shard member")
	}
	var hdr []byte
	for {
		hl, err := cr.uvarint()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if cap(hdr) < int(hl) {
			hdr = make([]byte, hl)
		}
		hdr = hdr[:hl]
		if err := cr.readFull(hdr); err != nil {
			return err
		}
		var h blockHeader
		if err := h.unmarshal(hdr); err != nil {
			return err
		}
		pl, err := cr.uvarint()
		if err != nil {
			return err
		}
		seg := segment{member: member, offset: cr.off, length: int64(pl), first: h.first, rows: h.rows, codec: h.codec}
		if err := cr.skip(int64(pl)); err != nil {
			return err
		}
		if err := d.addSegment(h, seg); err != nil {
			return err
		}
	}
}

func (d *Dataset) addSegment(h blockHeader, seg segment) error {
	c, ok := d.cols[h.name]
	if !ok {
		c = &column{name: h.name, width: h.width}
		d.cols[h.name] = c
		d.order = append(d.order, h.name)
	}
	if c.width != h.width {
		return fmt.Errorf("column %q changes width from %d to %d", h.name, c.width, h.width)
	}
	if h.first != c.rows {
		return fmt.Errorf("column %q block starts at row %d, expected %d", h.name, h.first, c.rows)
	}
	if seg.rows > 0 {
		c.segs = append(c.segs, seg)
	}
	c.rows += h.rows
	return nil
}

func (d *Dataset) checkLengths() error {
	for i, name := range d.order {
		c := d.cols[name]
		if i == 0 {
			d.rows = c.rows
			continue
		}
		if c.rows != d.rows {
			return &LengthMismatchError{Column: name, Want: d.rows, Got: c.rows}
		}
	}
	return nil
}

func (d *Dataset) readPhysical(c *column, start, stop, out int, dst []float32) error {
	k := sort.Search(len(c.segs), func(i int) bool { return c.segs[i].first+c.segs[i].rows > start })
	var block []float32
	for row := start; row < stop && k < len(c.segs); k++ {
		s := c.segs[k]
		var err error
		if block, err = d.decode(s, c.width, block); err != nil {
			return fmt.Errorf("shard: column %q: %w", c.name, err)
		}
		end := min(stop, s.first+s.rows)
		for ; row < end; row++ {
			src := block[(row-s.first)*c.width : (row-s.first+1)*c.width]
			o := dst[(row-start)*out : (row-start+1)*out]
			n := copy(o, src)
			clear(o[n:])
		}
	}
	return nil
}

func (d *Dataset) decode(s segment, width int, buf []float32) ([]float32, error) {
	raw := make([]byte, s.length)
	if _, err := d.files[s.member].ReadAt(raw, s.offset); err != nil {
		return nil, err
	}
	if s.codec == codecZstd {
		var err error
		if raw, err = d.dec.DecodeAll(raw, nil); err != nil {
			return nil, err
		}
	}
	n := s.rows * width
	if len(raw) != 4*n {
		return nil, fmt.Errorf("block holds %d bytes, want %d", len(raw), 4*n)
	}
	if cap(buf) < n {
		buf = make([]float32, n)
	}
	buf = buf[:n]
	getFloats(buf, raw)
	return buf, nil
}

func resolveMembers(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, errors.New("shard: no members given")
	}
	if len(paths) == 1 {
		if _, ok := suffix(paths[0]); !ok {
			base := paths[0]
			found, err := filepath.Glob(base + ".*")
			if err != nil {
				return nil, err
			}
			paths = nil
			for _, p := range found {
				if _, ok := suffix(p); ok {
					paths = append(paths, p)
				}
			}
			if len(paths) == 0 {
				return nil, fmt.Errorf("shard: no members for %q: %w", base, fs.ErrNotExist)
			}
		}
	}
	out := append([]string(nil), paths...)
	for _, p := range out {
		if _, ok := suffix(p); !ok {
			return nil, fmt.Errorf("shard: member %q has no numeric suffix", p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := suffix(out[i])
		b, _ := suffix(out[j])
		return a < b
	})
	return out, nil
}

func suffix(p string) (int, bool) {
	i := strings.LastIndexByte(p, '.')
	if i < 0 || i == len(p)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(p[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
