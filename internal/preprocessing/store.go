package preprocessing

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rule_groups (
	name     TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS rule_variables (
	grp      TEXT NOT NULL REFERENCES rule_groups(name),
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	offset_bits BLOB NOT NULL,
	scale_bits  BLOB NOT NULL,
	PRIMARY KEY (grp, position)
);
`

// Save writes the rules to a fresh sqlite sidecar at path, replacing any
// previous file. Vectors are stored as raw float32 bits so Load returns
// bit-identical values.
func Save(ctx context.Context, path string, r *Rules) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("preprocessing: open %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("preprocessing: schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for gi, g := range r.Groups {
		if _, err := tx.ExecContext(ctx, `INSERT INTO rule_groups (name, position) VALUES (?, ?)`, g.Name, gi); err != nil {
			return fmt.Errorf("preprocessing: group %s: %w", g.Name, err)
		}
		for vi, v := range g.Variables {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO rule_variables (grp, position, name, offset_bits, scale_bits) VALUES (?, ?, ?, ?, ?)`,
				g.Name, vi, v, encode(g.Offset[vi]), encode(g.Scale[vi])); err != nil {
				return fmt.Errorf("preprocessing: variable %s/%s: %w", g.Name, v, err)
			}
		}
	}
	return tx.Commit()
}

// Load reads a sidecar written by Save.
func Load(ctx context.Context, path string) (*Rules, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("preprocessing: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("preprocessing: open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT g.name, v.name, v.offset_bits, v.scale_bits
		FROM rule_groups g JOIN rule_variables v ON v.grp = g.name
		ORDER BY g.position, v.position`)
	if err != nil {
		return nil, fmt.Errorf("preprocessing: query %s: %w", path, err)
	}
	defer rows.Close()

	r := &Rules{}
	var cur *GroupRules
	for rows.Next() {
		var grp, name string
		var off, sc []byte
		if err := rows.Scan(&grp, &name, &off, &sc); err != nil {
			return nil, err
		}
		if cur == nil || cur.Name != grp {
			cur = &GroupRules{Name: grp}
			r.Groups = append(r.Groups, cur)
		}
		o, err := decode(off)
		if err != nil {
			return nil, fmt.Errorf("preprocessing: %s/%s offset: %w", grp, name, err)
		}
		s, err := decode(sc)
		if err != nil {
			return nil, fmt.Errorf("preprocessing: %s/%s scale: %w", grp, name, err)
		}
		cur.Variables = append(cur.Variables, name)
		cur.Offset = append(cur.Offset, o)
		cur.Scale = append(cur.Scale, s)
	}
	return r, rows.Err()
}

func encode(v []float32) []byte {
	b := make([]byte, 0, 4*len(v))
	for _, x := range v {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(x))
	}
	return b
}

func decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("blob of %d bytes is not a float32 vector", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
