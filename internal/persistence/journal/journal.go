// Package journal keeps an append-only, compressed log of territory deltas,
// one directory of hourly segments per territory.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"skyclaim.ai/internal/persistence"
	"skyclaim.ai/internal/territory"
)

// Journal is a territory.PersistenceSink writing one line per delta. A
// disband delta closes the territory's segment.
type Journal struct {
	dir string
	w   *Writer
}

func Open(dir string) *Journal {
	return &Journal{dir: dir, w: NewWriter(dir)}
}

func (j *Journal) Save(ctx context.Context, id uuid.UUID, d territory.Delta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := persistence.NewRecord(id, d)
	if err != nil {
		return fmt.Errorf("journal: encode %s delta: %w", d.Kind, err)
	}
	if err := j.w.Append(rec); err != nil {
		return err
	}
	if d.Kind == territory.DeltaDisband {
		return j.w.Forget(id)
	}
	return nil
}

func (j *Journal) Close() error { return j.w.Close() }

// Files lists the segments of one territory, oldest first.
func Files(dir string, id uuid.UUID) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, id.String(), segmentPrefix+"-*"+segmentExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Territories lists the territories that have a journal directory in dir.
func Territories(dir string) ([]uuid.UUID, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []uuid.UUID
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if id, err := uuid.Parse(e.Name()); err == nil {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// ReadFile decodes one segment into its headers and records.
func ReadFile(path string) ([]SegmentHeader, []persistence.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, nil, err
	}
	defer dec.Close()

	var (
		headers []SegmentHeader
		recs    []persistence.Record
	)
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var probe struct {
			Journal int `json:"journal"`
		}
		if err := json.Unmarshal(b, &probe); err != nil {
			return headers, recs, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		if probe.Journal != 0 {
			var h SegmentHeader
			if err := json.Unmarshal(b, &h); err != nil {
				return headers, recs, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
			}
			if h.Journal != formatVersion {
				return headers, recs, fmt.Errorf("%s:%d: unsupported journal version %d", filepath.Base(path), line, h.Journal)
			}
			headers = append(headers, h)
			continue
		}
		var r persistence.Record
		if err := json.Unmarshal(b, &r); err != nil {
			return headers, recs, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		recs = append(recs, r)
	}
	return headers, recs, sc.Err()
}

// Latest replays a territory's segments and keeps the newest record per kind.
func Latest(dir string, id uuid.UUID) (map[territory.DeltaKind]persistence.Record, error) {
	files, err := Files(dir, id)
	if err != nil {
		return nil, err
	}
	out := map[territory.DeltaKind]persistence.Record{}
	for _, path := range files {
		_, recs, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if r.TerritoryID != id {
				continue
			}
			if cur, ok := out[r.Kind]; ok && !r.Newer(cur) {
				continue
			}
			out[r.Kind] = r
		}
	}
	return out, nil
}
