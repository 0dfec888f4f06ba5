// Package archive retires territory snapshots: it keeps the newest few per
// territory and moves a disbanded territory's last snapshot aside.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"skyclaim.ai/internal/persistence/snapshot"
)

type Meta struct {
	TerritoryID uuid.UUID `json:"territory_id"`
	Seq         uint64    `json:"seq"`
	Owner       uuid.UUID `json:"owner"`
	Snapshot    string    `json:"snapshot"`
	ArchivedAt  string    `json:"archived_at"`
}

// Snapshots lists a territory's snapshot files, oldest first. File names
// carry the zero-padded seq so lexical order is seq order.
func Snapshots(snapshotDir string, id uuid.UUID) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(snapshotDir, id.String(), "*.snap.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Prune deletes all but the newest keep snapshots of a territory.
func Prune(snapshotDir string, id uuid.UUID, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	files, err := Snapshots(snapshotDir, id)
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(files)-removed > keep {
		if err := os.Remove(files[removed]); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Archive copies the newest snapshot of a territory into
// `archiveDir/<territory>/`, writes meta.json next to it and removes the
// live snapshot directory.
func Archive(snapshotDir, archiveDir string, id uuid.UUID) (Meta, error) {
	files, err := Snapshots(snapshotDir, id)
	if err != nil {
		return Meta{}, err
	}
	if len(files) == 0 {
		return Meta{}, fmt.Errorf("no snapshots for %s", id)
	}
	src := files[len(files)-1]
	snap, err := snapshot.Read(src, nil)
	if err != nil {
		return Meta{}, err
	}

	dir := filepath.Join(archiveDir, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Meta{}, err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return Meta{}, err
	}

	meta := Meta{
		TerritoryID: id,
		Seq:         snap.Header.Seq,
		Owner:       snap.State.Members.Owner,
		Snapshot:    filepath.Base(dst),
		ArchivedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Meta{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return Meta{}, err
	}
	if err := os.RemoveAll(filepath.Join(snapshotDir, id.String())); err != nil {
		return meta, err
	}
	return meta, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
