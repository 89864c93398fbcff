package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the hex SHA-256 digest of file content. Node staleness
// detection compares these digests, so the digest must be stable across runs.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashLines hashes the given 1-indexed inclusive line span of content.
// Used for per-entity content hashes so an entity's hash only changes when
// its own lines change.
func HashLines(content []byte, start, end int) string {
	lines := bytes.Split(content, []byte("\n"))
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return HashContent(nil)
	}
	span := bytes.Join(lines[start-1:end], []byte("\n"))
	return HashContent(span)
}

// CountLines reports the number of lines in content, counting a trailing
// unterminated line.
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
