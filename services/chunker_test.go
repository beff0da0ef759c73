package services

import (
	"strings"
	"testing"
)

func TestSplitTextCoversInput(t *testing.T) {
	text := strings.Repeat("abcdefghij", 137)
	chunks := SplitText(text, 100)

	if joined := strings.Join(chunks, ""); joined != text {
		t.Fatalf("concatenated chunks do not reproduce input")
	}
	for i, chunk := range chunks {
		if len(chunk) > 100 {
			t.Fatalf("chunk %d has length %d, want <= 100", i, len(chunk))
		}
	}
}

func TestSplitTextEmptyInput(t *testing.T) {
	chunks := SplitText("", 90000)
	if len(chunks) != 1 || chunks[0] != "" {
		t.Fatalf("empty input: got %d chunks %q, want one empty chunk", len(chunks), chunks)
	}
}

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short", 90000)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("short input: got %q", chunks)
	}
}

func TestSplitTextChunkCount(t *testing.T) {
	text := strings.Repeat("x", 500000)
	chunks := SplitText(text, 90000)

	if len(chunks) != 6 {
		t.Fatalf("500k chars at 90k per chunk: got %d chunks, want 6", len(chunks))
	}
	if len(chunks[5]) != 500000-5*90000 {
		t.Fatalf("last chunk has length %d", len(chunks[5]))
	}
}

func TestSplitTextNonPositiveMax(t *testing.T) {
	chunks := SplitText("whatever", 0)
	if len(chunks) != 1 || chunks[0] != "whatever" {
		t.Fatalf("non-positive max: got %q", chunks)
	}
}
