// Package persistence holds the delta sinks that back a territory.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"skyclaim.ai/internal/territory"
)

// Record is the stored form of one delta.
type Record struct {
	TerritoryID uuid.UUID           `json:"territory_id"`
	Seq         uint64              `json:"seq"`
	Kind        territory.DeltaKind `json:"kind"`
	At          time.Time           `json:"at"`
	Payload     json.RawMessage     `json:"payload,omitempty"`
}

func NewRecord(id uuid.UUID, d territory.Delta) (Record, error) {
	r := Record{TerritoryID: id, Seq: d.Seq, Kind: d.Kind, At: d.At.UTC()}
	if d.Payload != nil {
		b, err := json.Marshal(d.Payload)
		if err != nil {
			return Record{}, err
		}
		r.Payload = b
	}
	return r, nil
}

// Newer reports whether r supersedes other for the same territory and kind.
func (r Record) Newer(other Record) bool { return r.Seq > other.Seq }

type multi []territory.PersistenceSink

// Multi fans a delta out to every sink. All sinks see the delta even when
// an earlier one fails; the errors are joined.
func Multi(sinks ...territory.PersistenceSink) territory.PersistenceSink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Save(ctx context.Context, id uuid.UUID, d territory.Delta) error {
	var errList []error
	for _, s := range m {
		if err := s.Save(ctx, id, d); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

type discard struct{}

func (discard) Save(context.Context, uuid.UUID, territory.Delta) error { return nil }

// Discard drops every delta.
var Discard territory.PersistenceSink = discard{}
