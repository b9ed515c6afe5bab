package statetree

import (
	"strings"
	"testing"
)

func TestEscapeSegment(t *testing.T) {
	cases := []struct {
		raw, escaped string
	}{
		{"", ""},
		{"plain", "plain"},
		{"a/b", "a~1b"},
		{"~", "~0"},
		{"~1", "~01"},
		{"/~/", "~1~0~1"},
	}
	for _, tc := range cases {
		if got := EscapeSegment(tc.raw); got != tc.escaped {
			t.Fatalf("EscapeSegment(%q) = %q, want %q", tc.raw, got, tc.escaped)
		}
		if got := UnescapeSegment(tc.escaped); got != tc.raw {
			t.Fatalf("UnescapeSegment(%q) = %q, want %q", tc.escaped, got, tc.raw)
		}
	}
}

func TestEscapedSegmentNeverContainsSeparator(t *testing.T) {
	alphabet := []string{"a", "/", "~", "0", "1", "//", "~1", "~0"}
	var generate func(prefix string, depth int)
	generate = func(prefix string, depth int) {
		escaped := EscapeSegment(prefix)
		if strings.Contains(escaped, PathSeparator) {
			t.Fatalf("escaped segment %q of %q contains the separator", escaped, prefix)
		}
		if UnescapeSegment(escaped) != prefix {
			t.Fatalf("round trip of %q failed: %q", prefix, UnescapeSegment(escaped))
		}
		if depth == 0 {
			return
		}
		for _, letter := range alphabet {
			generate(prefix+letter, depth-1)
		}
	}
	generate("", 3)
}

func TestJoinAndSplitPath(t *testing.T) {
	path := JoinPath("todos", "a/b", "~x")
	if path != "/todos/a~1b/~0x" {
		t.Fatalf("unexpected joined path %q", path)
	}
	segments := SplitPath(path)
	want := []string{"todos", "a/b", "~x"}
	if len(segments) != len(want) {
		t.Fatalf("expected %v, got %v", want, segments)
	}
	for i := range want {
		if segments[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, segments)
		}
	}
	if JoinPath() != "" || SplitPath("") != nil || SplitPath("/") != nil {
		t.Fatalf("expected the root path to be empty")
	}
}

func TestNodePathEscapesMapKeys(t *testing.T) {
	tree, err := CreateObject(Map(String), map[string]any{"a/b": "x", "~": "y"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	slash, _ := tree.Get("a/b")
	if slash.Path() != "/a~1b" {
		t.Fatalf("expected escaped path, got %q", slash.Path())
	}
	if slash.Subpath() != "a/b" {
		t.Fatalf("expected raw subpath, got %q", slash.Subpath())
	}
	tilde, _ := tree.Get("~")
	if tilde.Path() != "/~0" {
		t.Fatalf("expected escaped tilde, got %q", tilde.Path())
	}
	resolved, err := tree.ResolvePath("/a~1b")
	if err != nil || resolved != slash {
		t.Fatalf("expected ResolvePath to unescape segments, got %v, %v", resolved, err)
	}
}
