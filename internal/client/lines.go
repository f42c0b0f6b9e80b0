package client

import "strings"

// ExtractNewLines scans buf beyond cursor and returns every complete line that
// has arrived since the previous call, along with the new cursor position.
// Lines are trimmed of surrounding whitespace; blank lines are dropped. A
// trailing fragment without its terminator is left for a later call, which is
// what makes the split point of incoming chunks irrelevant.
func ExtractNewLines(buf string, cursor int) ([]string, int) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(buf) {
		return nil, cursor
	}

	var lines []string
	for {
		idx := strings.IndexByte(buf[cursor:], '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSpace(buf[cursor : cursor+idx])
		if line != "" {
			lines = append(lines, line)
		}
		cursor += idx + 1
	}
	return lines, cursor
}

// LineParser incrementally decodes an arriving byte stream into complete
// lines. It never reprocesses input it has already split.
type LineParser struct {
	buf    strings.Builder
	cursor int
}

// Feed appends chunk to the internal buffer and returns any newly completed
// lines.
func (p *LineParser) Feed(chunk []byte) []string {
	p.buf.Write(chunk)
	lines, cursor := ExtractNewLines(p.buf.String(), p.cursor)
	p.cursor = cursor
	return lines
}

// Tail returns the unterminated remainder, if any. It is consumed at stream
// end, where the producer may omit the final newline.
func (p *LineParser) Tail() (string, bool) {
	tail := strings.TrimSpace(p.buf.String()[p.cursor:])
	if tail == "" {
		return "", false
	}
	p.cursor = p.buf.Len()
	return tail, true
}
