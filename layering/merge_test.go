package layering

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeLayersFromFixture(t *testing.T) {
	fx := loadLayeringFixture(t, "layering_merge.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			var opts []MergeOption
			if tc.IdentifierAttribute != "" {
				opts = append(opts, WithIdentifierAttribute(tc.IdentifierAttribute))
			}
			got := NewMerger(opts...).MergeLayers(tc.Layers...)
			if diff := cmp.Diff(tc.Expect, got); diff != "" {
				t.Fatalf("merged snapshot mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	if got := MergeLayers(); got != nil {
		t.Fatalf("expected MergeLayers() to return nil, got %#v", got)
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	weak := map[string]any{"nested": map[string]any{"a": 1}}
	strong := map[string]any{"other": true}

	merged := Merge(strong, weak).(map[string]any)
	merged["nested"].(map[string]any)["a"] = 2

	if weak["nested"].(map[string]any)["a"] != 1 {
		t.Fatalf("expected weak layer to be untouched, got %#v", weak)
	}
}

func TestMergeAcceptsTypedMaps(t *testing.T) {
	got := Merge(map[string]string{"a": "strong"}, map[string]any{"a": "weak", "b": "weak"})
	want := map[string]any{"a": "strong", "b": "weak"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestKeysSorted(t *testing.T) {
	got := Keys(map[string]any{"b": 1, "a": 2})
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if Keys([]any{1}) != nil {
		t.Fatalf("expected nil keys for non-map layer")
	}
}

type layeringFixture struct {
	Description string                `json:"description"`
	Cases       []layeringFixtureCase `json:"cases"`
}

type layeringFixtureCase struct {
	Name                string `json:"name"`
	IdentifierAttribute string `json:"identifierAttribute"`
	Layers              []any  `json:"layers"`
	Expect              any    `json:"expect"`
	Notes               string `json:"notes"`
}

func loadLayeringFixture(t *testing.T, name string) layeringFixture {
	t.Helper()
	path := filepath.Join("..", "testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read layering fixture %q: %v", name, err)
	}
	var fx layeringFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal layering fixture %q: %v", name, err)
	}
	return fx
}
