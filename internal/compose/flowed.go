package compose

import (
	"strings"
	"unicode/utf8"
)

// flowedWidth is where long paragraphs get a soft break (RFC 3676). A line
// ending in a space flows into the next one on the receiving side.
const flowedWidth = 78

// wrapFormatFlowed rewraps body text for format=flowed transport: long lines
// break after a space within the width, short lines and blank lines pass
// through, and lines that could be mistaken for structure are space-stuffed.
// Line endings are normalized to CRLF.
func wrapFormatFlowed(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(normalized, "\n") {
		out = append(out, flowLine(line)...)
	}
	return strings.Join(out, "\r\n")
}

func flowLine(line string) []string {
	var segments []string
	for utf8.RuneCountInString(line) > flowedWidth {
		cut := lastSpaceWithin(line, flowedWidth)
		if cut < 0 {
			break
		}
		// The space stays at the end of the leading segment; that trailing
		// space is the flowed continuation marker.
		segments = append(segments, spaceStuff(line[:cut+1]))
		line = line[cut+1:]
	}
	return append(segments, spaceStuff(line))
}

// lastSpaceWithin returns the byte offset of the last space among the first
// width runes, or -1.
func lastSpaceWithin(line string, width int) int {
	pos := -1
	count := 0
	for i, r := range line {
		if count >= width {
			break
		}
		if r == ' ' {
			pos = i
		}
		count++
	}
	return pos
}

// spaceStuff protects lines that would otherwise read as a quote
// continuation or an mbox separator.
func spaceStuff(line string) string {
	if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "From ") {
		return " " + line
	}
	return line
}
