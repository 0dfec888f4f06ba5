package territory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"skyclaim.ai/internal/territory/limits"
	"skyclaim.ai/internal/territory/region"
)

// PhysicalScanner counts every resource placed inside a region. A full scan
// is slow; the territory only calls it from the single-flight recalculation.
type PhysicalScanner interface {
	ScanRegion(ctx context.Context, b region.Bounds) (map[string]int, error)
}

type EntityCounter = limits.EntityCounter

// PersistenceSink receives a Delta after every successful mutation. Errors
// are logged and never retried by the territory.
type PersistenceSink interface {
	Save(ctx context.Context, territoryID uuid.UUID, d Delta) error
}

type DeltaKind string

const (
	DeltaMembers    DeltaKind = "members"
	DeltaPrivileges DeltaKind = "privileges"
	DeltaBlocks     DeltaKind = "blocks"
	DeltaBank       DeltaKind = "bank"
	DeltaBonus      DeltaKind = "bonus"
	DeltaWorth      DeltaKind = "worth"
	DeltaLimits     DeltaKind = "limits"
	DeltaGenerator  DeltaKind = "generator"
	DeltaWarps      DeltaKind = "warps"
	DeltaRatings    DeltaKind = "ratings"
	DeltaMissions   DeltaKind = "missions"
	DeltaFlags      DeltaKind = "flags"
	DeltaProfile    DeltaKind = "profile"
	DeltaHomes      DeltaKind = "homes"
	DeltaUpgrades   DeltaKind = "upgrades"
	DeltaDisband    DeltaKind = "disband"
)

// Delta carries the full current value of one sub-state. Seq increases with
// every delta a territory emits, so sinks can drop stale writes that arrive
// out of order.
type Delta struct {
	Seq     uint64    `json:"seq"`
	Kind    DeltaKind `json:"kind"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}
