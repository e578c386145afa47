package extract

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// rtf destination groups whose content is formatting metadata, not body text.
var rtfSkipGroups = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"header":     true,
	"footer":     true,
}

// rtfText strips RTF control words and groups, returning the document's
// plain text. Unknown input that is not actually RTF passes through mostly
// unchanged, which matches how lenient readers treat it.
func rtfText(src string) string {
	var out strings.Builder
	i := 0
	n := len(src)
	// Pending skip count for \uN unicode escapes: the chars after the escape
	// are a legacy-codepage fallback and must not be emitted twice.
	skipFallback := 0

	for i < n {
		c := src[i]
		switch c {
		case '{', '}':
			i++
		case '\\':
			i++
			if i >= n {
				break
			}
			switch src[i] {
			case '\\', '{', '}':
				out.WriteByte(src[i])
				i++
			case '\'':
				// Hex escape \'hh for a codepage byte.
				if i+2 < n {
					if b, err := strconv.ParseUint(src[i+1:i+3], 16, 8); err == nil {
						if skipFallback > 0 {
							skipFallback--
						} else {
							out.WriteRune(rune(b))
						}
					}
					i += 3
				} else {
					i = n
				}
			case '*':
				// \* introduces an optional destination; skip its group.
				i = skipRTFGroup(src, i)
			case '~':
				out.WriteByte(' ')
				i++
			default:
				word, param, next := readRTFControlWord(src, i)
				i = next
				switch word {
				case "par", "line", "sect", "page":
					out.WriteByte('\n')
				case "tab":
					out.WriteByte('\t')
				case "u":
					// \uN: signed 16-bit unicode code point, with one
					// fallback char following that must be suppressed.
					r := utf16.Decode([]uint16{uint16(param)})
					out.WriteRune(r[0])
					skipFallback = 1
				default:
					if rtfSkipGroups[word] {
						i = skipRTFGroup(src, i)
					}
				}
			}
		case '\r', '\n':
			// Raw newlines in RTF are insignificant.
			i++
		default:
			if skipFallback > 0 {
				skipFallback--
			} else {
				out.WriteByte(c)
			}
			i++
		}
	}
	return out.String()
}

// readRTFControlWord parses a control word starting at src[i] (past the
// backslash) and returns the word, its numeric parameter, and the index of
// the next significant byte. A single trailing space is part of the control
// word and is consumed.
func readRTFControlWord(src string, i int) (word string, param int, next int) {
	n := len(src)
	start := i
	for i < n && isASCIILetter(src[i]) {
		i++
	}
	word = src[start:i]

	numStart := i
	if i < n && src[i] == '-' {
		i++
	}
	for i < n && src[i] >= '0' && src[i] <= '9' {
		i++
	}
	if i > numStart {
		param, _ = strconv.Atoi(src[numStart:i])
	}

	if i < n && src[i] == ' ' {
		i++
	}
	return word, param, i
}

// skipRTFGroup advances past the group enclosing position i, balancing
// braces. i points just inside the group (after its opening control).
func skipRTFGroup(src string, i int) int {
	depth := 1
	n := len(src)
	for i < n && depth > 0 {
		switch src[i] {
		case '\\':
			i++ // escaped char never affects nesting
		case '{':
			depth++
		case '}':
			depth--
		}
		i++
	}
	return i
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
