package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Choice is the manual mapping state for a single canonical key.
type Choice struct {
	// None marks the field as intentionally absent.
	None bool
	// Column names an explicit raw column. Empty with None unset means auto-detect.
	Column string
}

// Auto reports whether the choice defers to the synonym table.
func (c Choice) Auto() bool { return !c.None && c.Column == "" }

func (c Choice) String() string {
	switch {
	case c.None:
		return "None"
	case c.Column != "":
		return c.Column
	default:
		return "Auto-detect"
	}
}

// ParseChoice reads the user-facing spelling of a mapping choice.
func ParseChoice(v string) Choice {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "auto", "auto-detect":
		return Choice{}
	case "none":
		return Choice{None: true}
	}
	return Choice{Column: v}
}

// Mapping is a per-session manual mapping from canonical key to choice.
// Keys that are not present are auto-detected.
type Mapping map[string]Choice

// Get returns the choice for key, defaulting to auto.
func (m Mapping) Get(key string) Choice {
	if m == nil {
		return Choice{}
	}
	return m[key]
}

// ParseMapping builds a Mapping from key -> user string pairs, rejecting keys unknown to s.
func ParseMapping(s *Schema, raw map[string]string) (Mapping, error) {
	out := Mapping{}
	var unknown []string
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, ok := s.Field(key); !ok {
			unknown = append(unknown, k)
			continue
		}
		c := ParseChoice(v)
		if c.Auto() {
			continue
		}
		out[key] = c
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown mapping key(s) %s; valid keys: %s",
			strings.Join(unknown, ", "), strings.Join(s.Keys(), ", "))
	}
	return out, nil
}

// Strings renders the mapping for every schema key, including auto-detected ones.
func (m Mapping) Strings(s *Schema) map[string]string {
	out := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Key] = m.Get(f.Key).String()
	}
	return out
}
