package statetree

import "strings"

// PathSeparator delimits segments in a node path.
const PathSeparator = "/"

var (
	segmentEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	segmentUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// EscapeSegment encodes a raw subpath so it never contains an unescaped
// separator. The encoding follows JSON pointer rules (RFC 6901).
func EscapeSegment(segment string) string {
	if !strings.ContainsAny(segment, "~/") {
		return segment
	}
	return segmentEscaper.Replace(segment)
}

// UnescapeSegment reverses EscapeSegment.
func UnescapeSegment(segment string) string {
	if !strings.Contains(segment, "~") {
		return segment
	}
	return segmentUnescaper.Replace(segment)
}

// JoinPath escapes and joins raw segments into an absolute path. No segments
// yields the root path "".
func JoinPath(segments ...string) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	for _, segment := range segments {
		b.WriteString(PathSeparator)
		b.WriteString(EscapeSegment(segment))
	}
	return b.String()
}

// SplitPath splits an absolute path into raw (unescaped) segments.
func SplitPath(path string) []string {
	if path == "" || path == PathSeparator {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(path, PathSeparator), PathSeparator)
	for i, part := range parts {
		parts[i] = UnescapeSegment(part)
	}
	return parts
}
