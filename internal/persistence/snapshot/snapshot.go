// Package snapshot writes and reads full territory states as zstd files: a
// JSON header line followed by the JSON state.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"skyclaim.ai/internal/territory"
)

const Version = 1

type Header struct {
	Version     int       `json:"version"`
	TerritoryID uuid.UUID `json:"territory_id"`
	Seq         uint64    `json:"seq"`
	WrittenAt   time.Time `json:"written_at"`
}

type Snapshot struct {
	Header Header          `json:"header"`
	State  territory.State `json:"state"`
}

func New(st territory.State, at time.Time) Snapshot {
	return Snapshot{
		Header: Header{
			Version:     Version,
			TerritoryID: st.ID,
			Seq:         st.Seq,
			WrittenAt:   at.UTC(),
		},
		State: st,
	}
}

// Take captures t and writes it under dir, returning the file path.
func Take(t *territory.Territory, dir string) (string, error) {
	st, err := t.State()
	if err != nil {
		return "", err
	}
	snap := New(st, time.Now())
	path := PathFor(dir, snap.Header)
	if err := Write(path, snap); err != nil {
		return "", err
	}
	return path, nil
}

func PathFor(dir string, h Header) string {
	return filepath.Join(dir, h.TerritoryID.String(), fmt.Sprintf("%020d.snap.zst", h.Seq))
}

// Write replaces path atomically.
func Write(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snap-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, snap); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func encode(w io.Writer, snap Snapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(snap.State); err != nil {
		_ = enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadRaw returns the decompressed header line and state body.
func ReadRaw(path string) (header, body []byte, err error) {
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

	br := bufio.NewReaderSize(dec, 256*1024)
	header, err = br.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	body, err = io.ReadAll(br)
	if err != nil {
		return nil, nil, err
	}
	return bytes.TrimSpace(header), bytes.TrimSpace(body), nil
}

func ReadHeader(path string) (Header, error) {
	var h Header
	raw, _, err := ReadRaw(path)
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(raw, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// Read decodes a snapshot. When v is non-nil the document is validated
// against the schema first.
func Read(path string, v *Validator) (Snapshot, error) {
	var snap Snapshot
	header, body, err := ReadRaw(path)
	if err != nil {
		return snap, err
	}
	if v != nil {
		if err := v.ValidateParts(header, body); err != nil {
			return snap, err
		}
	}
	if err := json.Unmarshal(header, &snap.Header); err != nil {
		return snap, fmt.Errorf("decode header: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if err := json.Unmarshal(body, &snap.State); err != nil {
		return snap, fmt.Errorf("decode state: %w", err)
	}
	if snap.State.ID != snap.Header.TerritoryID {
		return snap, fmt.Errorf("header territory %s does not match state %s", snap.Header.TerritoryID, snap.State.ID)
	}
	return snap, nil
}

// Load reads path and rebuilds the territory with opts.
func Load(path string, v *Validator, opts territory.Options) (*territory.Territory, error) {
	snap, err := Read(path, v)
	if err != nil {
		return nil, err
	}
	return territory.Restore(snap.State, opts)
}
