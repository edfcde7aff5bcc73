package chunker

import "unicode"

// span is a half-open rune-offset range into the source text.
type span struct {
	start int
	end   int
}

// sentence terminators. ASCII plus the common CJK full-width forms and
// the horizontal ellipsis.
func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}

// closing quotes and brackets that belong to the sentence they follow.
func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '»', '”', '’', '」', '』':
		return true
	}
	return false
}

// sentenceSpans segments text into sentence-like spans. Spans are
// contiguous and cover the entire input; trailing whitespace belongs to
// the span it follows. A terminator only ends a sentence when followed
// by whitespace or end of text, so "3.14" and "e.g." stay intact. A
// blank line is a boundary even without a terminator.
func sentenceSpans(runes []rune) []span {
	n := len(runes)
	var spans []span
	start := 0

	i := 0
	for i < n {
		r := runes[i]

		if isTerminator(r) {
			j := i + 1
			for j < n && isClosing(runes[j]) {
				j++
			}
			if j >= n || unicode.IsSpace(runes[j]) {
				for j < n && unicode.IsSpace(runes[j]) {
					j++
				}
				spans = append(spans, span{start: start, end: j})
				start = j
				i = j
				continue
			}
			i = j
			continue
		}

		if r == '\n' && isBlankLineAhead(runes, i+1) {
			j := i
			for j < n && unicode.IsSpace(runes[j]) {
				j++
			}
			spans = append(spans, span{start: start, end: j})
			start = j
			i = j
			continue
		}

		i++
	}

	if start < n {
		spans = append(spans, span{start: start, end: n})
	}
	return spans
}

// isBlankLineAhead reports whether only spaces or tabs separate position
// i from the next newline.
func isBlankLineAhead(runes []rune, i int) bool {
	for ; i < len(runes); i++ {
		switch runes[i] {
		case ' ', '\t', '\r':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return false
}
