package territory

import (
	"sort"
	"strings"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/region"
)

type Warp struct {
	Name     string          `json:"name"`
	Location region.Location `json:"location"`
	Private  bool            `json:"private,omitempty"`
}

func warpKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// SetWarp creates or moves a warp. Creating one needs a free slot under the
// warps limit; moving an existing warp does not.
func (t *Territory) SetWarp(name string, loc region.Location, private bool) error {
	const op = "set_warp"
	return t.mutate(op, func() ([]Delta, error) {
		k := warpKey(name)
		if k == "" {
			return nil, errs.Validation(op, "warp name must not be empty")
		}
		if _, exists := t.warps[k]; !exists && !t.limits.HasMoreWarpSlots(len(t.warps)) {
			return nil, errs.InvalidState(op, "warps limit %s reached", t.limits.WarpsLimit())
		}
		t.warps[k] = Warp{Name: strings.TrimSpace(name), Location: loc, Private: private}
		return t.deltas(DeltaWarps), nil
	})
}

func (t *Territory) SetWarpPrivate(name string, private bool) error {
	const op = "set_warp_private"
	return t.mutate(op, func() ([]Delta, error) {
		w, ok := t.warps[warpKey(name)]
		if !ok {
			return nil, errs.InvalidState(op, "no warp named %q", name)
		}
		w.Private = private
		t.warps[warpKey(name)] = w
		return t.deltas(DeltaWarps), nil
	})
}

func (t *Territory) Warp(name string) (Warp, bool, error) {
	var ok bool
	w, err := view(t, "warp", func() Warp {
		var w Warp
		w, ok = t.warps[warpKey(name)]
		return w
	})
	return w, ok, err
}

// DeleteWarp reports whether a warp was removed.
func (t *Territory) DeleteWarp(name string) (bool, error) {
	var deleted bool
	err := t.mutate("delete_warp", func() ([]Delta, error) {
		k := warpKey(name)
		if _, deleted = t.warps[k]; !deleted {
			return nil, nil
		}
		delete(t.warps, k)
		return t.deltas(DeltaWarps), nil
	})
	return deleted, err
}

// DeleteWarpAt removes the warp standing on loc's block and returns its name.
func (t *Territory) DeleteWarpAt(loc region.Location) (string, error) {
	var name string
	err := t.mutate("delete_warp_at", func() ([]Delta, error) {
		for k, w := range t.warps {
			if w.Location.SameBlock(loc) {
				name = w.Name
				delete(t.warps, k)
				return t.deltas(DeltaWarps), nil
			}
		}
		return nil, nil
	})
	return name, err
}

// Warps lists every warp sorted by name.
func (t *Territory) Warps() ([]Warp, error) {
	return view(t, "warps", t.warpList)
}

func (t *Territory) warpList() []Warp {
	out := make([]Warp, 0, len(t.warps))
	for _, w := range t.warps {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return warpKey(out[i].Name) < warpKey(out[j].Name) })
	return out
}

func (t *Territory) HasMoreWarpSlots() (bool, error) {
	return view(t, "has_more_warp_slots", func() bool { return t.limits.HasMoreWarpSlots(len(t.warps)) })
}
