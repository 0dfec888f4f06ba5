package territory

import (
	"sort"
	"strings"

	"skyclaim.ai/internal/errs"
)

// Mission is the part of a mission definition the territory needs to decide
// whether it can be completed again.
type Mission struct {
	Name       string
	Repeatable bool
	// MaxCompletions caps a repeatable mission; <= 0 means no cap.
	MaxCompletions int
}

func missionKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// CompleteMission bumps the completion counter of name.
func (t *Territory) CompleteMission(name string) error {
	const op = "complete_mission"
	return t.mutate(op, func() ([]Delta, error) {
		k := missionKey(name)
		if k == "" {
			return nil, errs.Validation(op, "mission name must not be empty")
		}
		t.missions[k]++
		return t.deltas(DeltaMissions), nil
	})
}

// ResetMission takes one completion back. A counter that reaches zero is
// forgotten.
func (t *Territory) ResetMission(name string) error {
	return t.mutate("reset_mission", func() ([]Delta, error) {
		k := missionKey(name)
		n, ok := t.missions[k]
		if !ok {
			return nil, nil
		}
		if n <= 1 {
			delete(t.missions, k)
		} else {
			t.missions[k] = n - 1
		}
		return t.deltas(DeltaMissions), nil
	})
}

func (t *Territory) MissionCompletions(name string) (int, error) {
	return view(t, "mission_completions", func() int { return t.missions[missionKey(name)] })
}

func (t *Territory) HasCompletedMission(name string) (bool, error) {
	return view(t, "has_completed_mission", func() bool { return t.missions[missionKey(name)] > 0 })
}

// CanCompleteAgain applies m's repeat policy to the current counter.
func (t *Territory) CanCompleteAgain(m Mission) (bool, error) {
	return view(t, "can_complete_again", func() bool {
		n := t.missions[missionKey(m.Name)]
		if !m.Repeatable {
			return n == 0
		}
		return m.MaxCompletions <= 0 || n < m.MaxCompletions
	})
}

// CompletedMissions lists every mission completed at least once, sorted.
func (t *Territory) CompletedMissions() ([]string, error) {
	return view(t, "completed_missions", func() []string {
		out := make([]string, 0, len(t.missions))
		for k := range t.missions {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	})
}

func (t *Territory) missionsCopy() map[string]int {
	out := make(map[string]int, len(t.missions))
	for k, v := range t.missions {
		out[k] = v
	}
	return out
}
