package layering

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Trace records which layers of a stack hold a value at Path.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance is one layer's contribution to a traced path.
type Provenance struct {
	Layer string `json:"layer"`
	Level Level  `json:"level"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Winner returns the strongest layer that holds a value, if any.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace for logging.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON decodes a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Trace looks path up in every layer, strongest first. path uses "/"
// separated segments with "~1" and "~0" escaping; array elements are
// addressed by index.
func (s Stack) Trace(path string) Trace {
	trace := Trace{Path: path, Layers: make([]Provenance, 0, len(s.ordered))}
	segments := splitPointer(path)
	for _, layer := range s.ordered {
		value, found := lookup(layer.Snapshot, segments)
		entry := Provenance{Layer: layer.Name, Level: layer.Level, Found: found}
		if found {
			entry.Value = Clone(value)
		}
		trace.Layers = append(trace.Layers, entry)
	}
	return trace
}

// MarshalText renders the level name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText parses a level name.
func (l *Level) UnmarshalText(text []byte) error {
	*l = ParseLevel(string(text))
	return nil
}

func lookup(value any, segments []string) (any, bool) {
	current := value
	for _, segment := range segments {
		if m, ok := asMap(current); ok {
			next, exists := m[segment]
			if !exists {
				return nil, false
			}
			current = next
			continue
		}
		items, ok := asSlice(current)
		if !ok {
			return nil, false
		}
		index, err := strconv.Atoi(segment)
		if err != nil || index < 0 || index >= len(items) {
			return nil, false
		}
		current = items[index]
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func splitPointer(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
	}
	return parts
}
