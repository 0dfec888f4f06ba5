package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"skyclaim.ai/internal/persistence"
)

const (
	formatVersion = 1
	hourLayout    = "2006-01-02-15"
	segmentPrefix = "deltas"
	segmentExt    = ".jsonl.zst"
)

// SegmentHeader opens every run of records in a segment file. A file that was
// appended to after a restart carries one header per run.
type SegmentHeader struct {
	Journal     int       `json:"journal"`
	TerritoryID uuid.UUID `json:"territory_id"`
	Hour        string    `json:"hour"`
	FirstSeq    uint64    `json:"first_seq"`
	OpenedAt    time.Time `json:"opened_at"`
}

type segment struct {
	hour string
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
}

func (s *segment) writeLine(b []byte) error {
	if _, err := s.buf.Write(b); err != nil {
		return err
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.enc.Flush()
}

func (s *segment) close() error {
	flushErr := s.buf.Flush()
	encErr := s.enc.Close()
	fileErr := s.f.Close()
	return errors.Join(flushErr, encErr, fileErr)
}

// Writer appends records to one zstd segment per territory and UTC hour:
//
//	<dir>/<territory id>/deltas-2006-01-02-15.jsonl.zst
type Writer struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	open map[uuid.UUID]*segment
}

func NewWriter(dir string) *Writer {
	return &Writer{
		dir:  dir,
		now:  time.Now,
		open: map[uuid.UUID]*segment{},
	}
}

// Append writes rec to its territory's current segment, rotating when the
// hour changes.
func (w *Writer) Append(rec persistence.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format(hourLayout)
	seg := w.open[rec.TerritoryID]
	if seg == nil || seg.hour != hour {
		if seg != nil {
			delete(w.open, rec.TerritoryID)
			if err := seg.close(); err != nil {
				return err
			}
		}
		seg, err = w.openSegment(rec.TerritoryID, hour, rec.Seq)
		if err != nil {
			return err
		}
		w.open[rec.TerritoryID] = seg
	}
	return seg.writeLine(line)
}

// Forget closes the open segment of one territory. The next Append for it
// starts a new run with a fresh header.
func (w *Writer) Forget(id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	seg, ok := w.open[id]
	if !ok {
		return nil
	}
	delete(w.open, id)
	return seg.close()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for id, seg := range w.open {
		errs = append(errs, seg.close())
		delete(w.open, id)
	}
	return errors.Join(errs...)
}

func (w *Writer) openSegment(id uuid.UUID, hour string, firstSeq uint64) (*segment, error) {
	path := segmentPath(w.dir, id, hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	seg := &segment{hour: hour, f: f, enc: enc, buf: bufio.NewWriterSize(enc, 64*1024)}

	header, err := json.Marshal(SegmentHeader{
		Journal:     formatVersion,
		TerritoryID: id,
		Hour:        hour,
		FirstSeq:    firstSeq,
		OpenedAt:    w.now().UTC(),
	})
	if err == nil {
		err = seg.writeLine(header)
	}
	if err != nil {
		_ = seg.close()
		return nil, fmt.Errorf("journal: write header: %w", err)
	}
	return seg, nil
}

func segmentPath(dir string, id uuid.UUID, hour string) string {
	return filepath.Join(dir, id.String(), segmentPrefix+"-"+hour+segmentExt)
}
