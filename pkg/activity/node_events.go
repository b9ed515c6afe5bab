package activity

import (
	"strings"
	"time"
)

const (
	VerbNodeCreated   = "node.created"
	VerbNodeAttached  = "node.attached"
	VerbNodeDetached  = "node.detached"
	VerbNodeDestroyed = "node.destroyed"
)

// NodeEventInput describes the node a lifecycle event is about.
type NodeEventInput struct {
	TypeName   string
	Identifier string
	Path       string
	Subpath    string
	State      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildNodeEvent constructs the activity event for a lifecycle verb. It
// reports false when verb is empty, i.e. the hook has no activity mapping.
func BuildNodeEvent(verb string, input NodeEventInput) (Event, bool) {
	verb = strings.TrimSpace(verb)
	if verb == "" {
		return Event{}, false
	}

	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["path"] = input.Path
	if input.Subpath != "" {
		metadata["subpath"] = input.Subpath
	}
	if input.State != "" {
		metadata["state"] = input.State
	}
	if input.Identifier != "" {
		metadata["identifier"] = input.Identifier
	}

	objectType := strings.TrimSpace(input.TypeName)
	if objectType == "" {
		objectType = "node"
	}

	// Identified nodes are tracked by identity, anonymous ones by location.
	objectID := strings.TrimSpace(input.Identifier)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Path)
	}
	if objectID == "" {
		objectID = "/"
	}

	return Event{
		Verb:       verb,
		ObjectType: objectType,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}, true
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
