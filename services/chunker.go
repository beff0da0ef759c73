package services

// SplitText splits text into contiguous runs of at most maxLen characters,
// in order, with no overlap and no boundary awareness. Concatenating the
// result reproduces the input exactly. Empty input yields a single empty
// chunk so that downstream aggregation always has one generation result per
// chunk to work with.
func SplitText(text string, maxLen int) []string {
	if maxLen <= 0 {
		return []string{text}
	}
	if text == "" {
		return []string{""}
	}

	chunks := make([]string, 0, len(text)/maxLen+1)
	for i := 0; i < len(text); i += maxLen {
		end := i + maxLen
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[i:end])
	}
	return chunks
}
