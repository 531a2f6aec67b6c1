package knowledge

import "strings"

// SplitText breaks text into spans of at most maxSize characters that share
// roughly overlap characters with their neighbour. Cuts prefer the last '.',
// newline or space in the second half of each window.
func SplitText(text string, maxSize, overlap int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 4
	}

	runes := []rune(text)
	if len(runes) <= maxSize {
		if s := strings.TrimSpace(text); s != "" {
			return []string{s}
		}
		return nil
	}

	var spans []string
	start := 0
	for start < len(runes) {
		end := start + maxSize
		if end < len(runes) {
			if bp := lastBreak(runes, start+maxSize/2, end); bp >= 0 {
				end = bp + 1
			}
		} else {
			end = len(runes)
		}

		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			spans = append(spans, s)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
		if start >= len(runes)-overlap {
			break
		}
	}
	return spans
}

// lastBreak scans backwards from end (exclusive) down to floor (exclusive)
// and returns the index of the nearest break rune, or -1.
func lastBreak(runes []rune, floor, end int) int {
	for i := end - 1; i > floor; i-- {
		switch runes[i] {
		case '.', '\n', ' ':
			return i
		}
	}
	return -1
}
