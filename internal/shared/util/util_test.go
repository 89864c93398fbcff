package util

import "testing"

func TestSortedStringKeys(t *testing.T) {
	m := map[string]int{"c": 1, "a": 2, "b": 3}
	keys := SortedStringKeys(m)
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestHashContent_Stable(t *testing.T) {
	a := HashContent([]byte("package main"))
	b := HashContent([]byte("package main"))
	if a != b {
		t.Error("same content must hash identically")
	}
	if a == HashContent([]byte("package other")) {
		t.Error("different content must hash differently")
	}
}

func TestHashLines_SpanIsolation(t *testing.T) {
	before := []byte("a\nb\nc\nd\n")
	after := []byte("a\nb\nc\nCHANGED\n")

	if HashLines(before, 1, 3) != HashLines(after, 1, 3) {
		t.Error("hash of untouched span should not change")
	}
	if HashLines(before, 3, 4) == HashLines(after, 3, 4) {
		t.Error("hash of changed span should change")
	}
}

func TestHashLines_OutOfBounds(t *testing.T) {
	content := []byte("one\ntwo\n")
	// Clamped spans must not panic and must stay deterministic.
	if HashLines(content, 0, 99) != HashLines(content, 1, 3) {
		t.Error("clamped span mismatch")
	}
	if HashLines(content, 5, 2) != HashContent(nil) {
		t.Error("inverted span should hash empty content")
	}
}

func TestCountLines(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
	}
	for _, c := range cases {
		if got := CountLines([]byte(c.in)); got != c.want {
			t.Errorf("CountLines(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
