package layering

import (
	"fmt"
	"slices"
	"strings"
)

// Level is the precedence of a layer. Higher levels override lower ones.
type Level int

const (
	LevelUnknown Level = iota
	// LevelDefaults holds the values shipped with the type.
	LevelDefaults
	// LevelShared holds overrides shared by a group, e.g. a tenant.
	LevelShared
	// LevelLocal holds the strongest overrides.
	LevelLocal
)

func (l Level) String() string {
	switch l {
	case LevelDefaults:
		return "defaults"
	case LevelShared:
		return "shared"
	case LevelLocal:
		return "local"
	default:
		return "unknown"
	}
}

// ParseLevel converts a level name, case-insensitively. Unrecognised values
// yield LevelUnknown.
func ParseLevel(value string) Level {
	switch strings.ToLower(value) {
	case "defaults":
		return LevelDefaults
	case "shared":
		return LevelShared
	case "local":
		return LevelLocal
	default:
		return LevelUnknown
	}
}

// Layer is one named snapshot in a stack.
type Layer struct {
	Name     string
	Level    Level
	Snapshot any
}

func (l Layer) key() string {
	return fmt.Sprintf("%s/%s", l.Level, l.Name)
}

// Stack orders layers from strongest to weakest.
type Stack struct {
	ordered []Layer
}

// NewStack drops layers with an unknown level and duplicates of a level and
// name already seen, then sorts stronger levels first. Peers keep their
// relative order.
func NewStack(layers ...Layer) Stack {
	filtered := make([]Layer, 0, len(layers))
	seen := map[string]struct{}{}
	for _, layer := range layers {
		if layer.Level == LevelUnknown {
			continue
		}
		if _, exists := seen[layer.key()]; exists {
			continue
		}
		seen[layer.key()] = struct{}{}
		filtered = append(filtered, layer)
	}
	slices.SortStableFunc(filtered, func(a, b Layer) int {
		switch {
		case a.Level == b.Level:
			return 0
		case a.Level > b.Level:
			return -1
		default:
			return 1
		}
	})
	return Stack{ordered: filtered}
}

// Ordered returns the layers, strongest first.
func (s Stack) Ordered() []Layer {
	out := make([]Layer, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Snapshots returns the layer snapshots, strongest first.
func (s Stack) Snapshots() []any {
	out := make([]any, len(s.ordered))
	for i, layer := range s.ordered {
		out[i] = layer.Snapshot
	}
	return out
}

// Merge composes the stack with m, or with a default Merger when m is nil.
func (s Stack) Merge(m *Merger) any {
	if m == nil {
		m = NewMerger()
	}
	return m.MergeLayers(s.Snapshots()...)
}
