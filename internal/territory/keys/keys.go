// Package keys decides which resource keys count as the same logical resource.
//
// Keys look like "TYPE" or "TYPE:VARIANT". A bare TYPE stands for all of its
// variants; configured groups tie otherwise unrelated keys together.
package keys

import (
	"sort"
	"strings"
)

// Equivalence expands a key to every key that counts as the same resource.
// The result always contains the key itself.
type Equivalence interface {
	Expand(key string) []string
}

// Normalize upper-cases and trims a key.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Global strips the variant part: "WOOL:14" -> "WOOL".
func Global(key string) string {
	key = Normalize(key)
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Exact treats every key as unique.
type Exact struct{}

func (Exact) Expand(key string) []string { return []string{Normalize(key)} }

// Groups ties keys together by configured group.
type Groups struct {
	byKey  map[string]string
	groups map[string][]string
}

// NewGroups builds an equivalence from named groups of keys. A key listed in
// more than one group stays in the first group by name.
func NewGroups(groups map[string][]string) *Groups {
	g := &Groups{
		byKey:  map[string]string{},
		groups: map[string][]string{},
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, k := range groups[name] {
			k = Normalize(k)
			if k == "" {
				continue
			}
			if _, taken := g.byKey[k]; taken {
				continue
			}
			g.byKey[k] = name
			g.groups[name] = append(g.groups[name], k)
		}
	}
	return g
}

// Expand returns the key followed by the other members of its group.
func (g *Groups) Expand(key string) []string {
	key = Normalize(key)
	out := []string{key}
	if g == nil {
		return out
	}
	name, ok := g.byKey[key]
	if !ok {
		return out
	}
	for _, k := range g.groups[name] {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// Matches reports whether candidate counts toward key: it is one of the
// expanded keys, or a variant of an expanded key that is itself global
// ("WOOL" matches "WOOL:14", "WOOL:3" does not match "WOOL:14").
func Matches(eq Equivalence, key, candidate string) bool {
	candidate = Normalize(candidate)
	for _, k := range eq.Expand(key) {
		if k == candidate {
			return true
		}
		if k == Global(k) && Global(candidate) == k {
			return true
		}
	}
	return false
}
