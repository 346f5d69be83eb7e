package manifest

import (
	"slices"
	"strconv"
	"strings"
)

// Document is a TOML file held as lines so edits can be made without
// disturbing the surrounding text.
type Document struct {
	lines []string
	eol   string
}

// NewDocument splits data into lines, remembering the line ending in use.
func NewDocument(data []byte) *Document {
	s := string(data)
	eol := "\n"
	if strings.Contains(s, "\r\n") {
		eol = "\r\n"
	}
	return &Document{lines: strings.Split(s, eol), eol: eol}
}

// Bytes joins the document back into file content.
func (d *Document) Bytes() []byte {
	return []byte(strings.Join(d.lines, d.eol))
}

// entry is a table header or a key/value line found by scan.
type entry struct {
	line   int
	table  []string // enclosing table for keys, own path for headers
	header bool
	key    []string // dotted key path, nil for headers
	value  int      // byte offset of the value within the line
}

// scan tokenizes the document into headers and key/value lines. Lines that
// continue a multi-line array or string are skipped.
func (d *Document) scan() []entry {
	var (
		out       []entry
		table     []string
		depth     int
		multiline string
	)
	for i, text := range d.lines {
		if multiline != "" {
			if strings.Contains(text, multiline) {
				multiline = ""
			}
			continue
		}
		if depth > 0 {
			depth += bracketDelta(text)
			continue
		}

		trimmed := strings.TrimSpace(text)
		if trimmed == "" || trimmed[0] == '#' {
			continue
		}
		if trimmed[0] == '[' {
			if path, ok := parseHeader(trimmed); ok {
				table = path
				out = append(out, entry{line: i, table: path, header: true})
			}
			continue
		}

		key, pos, ok := parseAssignment(text)
		if !ok {
			continue
		}
		out = append(out, entry{line: i, table: table, key: key, value: pos})

		rest := text[pos:]
		if delim := openMultiline(rest); delim != "" {
			multiline = delim
			continue
		}
		if strings.HasPrefix(rest, "[") {
			depth = bracketDelta(rest)
		}
	}
	return out
}

// find returns the key/value entry at table+key.
func (d *Document) find(table, key []string) (entry, bool) {
	for _, e := range d.scan() {
		if !e.header && slices.Equal(e.table, table) && slices.Equal(e.key, key) {
			return e, true
		}
	}
	return entry{}, false
}

// header returns the header entry for table.
func (d *Document) header(table []string) (entry, bool) {
	for _, e := range d.scan() {
		if e.header && slices.Equal(e.table, table) {
			return e, true
		}
	}
	return entry{}, false
}

// lastKeyWithPrefix returns the last key/value line in table whose key
// starts with prefix.
func (d *Document) lastKeyWithPrefix(table, prefix []string) (entry, bool) {
	var last entry
	found := false
	for _, e := range d.scan() {
		if !e.header && slices.Equal(e.table, table) && len(e.key) > len(prefix) && slices.Equal(e.key[:len(prefix)], prefix) {
			last, found = e, true
		}
	}
	return last, found
}

// replace swaps bytes [start, end) of line i for s.
func (d *Document) replace(i, start, end int, s string) {
	text := d.lines[i]
	d.lines[i] = text[:start] + s + text[end:]
}

// insertAfter adds a new line after line i.
func (d *Document) insertAfter(i int, text string) {
	d.lines = slices.Insert(d.lines, i+1, text)
}

func parseHeader(s string) ([]string, bool) {
	open := "["
	if strings.HasPrefix(s, "[[") {
		open = "[["
	}
	path, pos, ok := parseKeyPath(s, len(open))
	if !ok {
		return nil, false
	}
	pos = skipSpace(s, pos)
	closing := strings.Repeat("]", len(open))
	if !strings.HasPrefix(s[pos:], closing) {
		return nil, false
	}
	return path, true
}

// parseAssignment parses `key = ` at the start of text and returns the key
// path and the offset of the value.
func parseAssignment(text string) ([]string, int, bool) {
	key, pos, ok := parseKeyPath(text, skipSpace(text, 0))
	if !ok {
		return nil, 0, false
	}
	pos = skipSpace(text, pos)
	if pos >= len(text) || text[pos] != '=' {
		return nil, 0, false
	}
	return key, skipSpace(text, pos+1), true
}

// parseKeyPath reads a dotted key (bare or quoted parts) starting at pos.
func parseKeyPath(s string, pos int) ([]string, int, bool) {
	var parts []string
	for {
		pos = skipSpace(s, pos)
		if pos >= len(s) {
			return nil, 0, false
		}
		var part string
		switch s[pos] {
		case '"':
			end := stringEnd(s, pos)
			if end < 0 {
				return nil, 0, false
			}
			unq, err := strconv.Unquote(s[pos : end+1])
			if err != nil {
				return nil, 0, false
			}
			part, pos = unq, end+1
		case '\'':
			end := strings.IndexByte(s[pos+1:], '\'')
			if end < 0 {
				return nil, 0, false
			}
			part, pos = s[pos+1:pos+1+end], pos+end+2
		default:
			start := pos
			for pos < len(s) && isBareKeyChar(s[pos]) {
				pos++
			}
			if pos == start {
				return nil, 0, false
			}
			part = s[start:pos]
		}
		parts = append(parts, part)

		next := skipSpace(s, pos)
		if next < len(s) && s[next] == '.' {
			pos = next + 1
			continue
		}
		return parts, pos, true
	}
}

func isBareKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}

// stringEnd returns the index of the quote closing the single-line string
// opening at pos, or -1.
func stringEnd(s string, pos int) int {
	quote := s[pos]
	for i := pos + 1; i < len(s); i++ {
		switch {
		case quote == '"' && s[i] == '\\':
			i++
		case s[i] == quote:
			return i
		}
	}
	return -1
}

// stringValue returns the content bounds of a single-line string value at pos.
func stringValue(s string, pos int) (start, end int, ok bool) {
	if pos >= len(s) || (s[pos] != '"' && s[pos] != '\'') {
		return 0, 0, false
	}
	if strings.HasPrefix(s[pos:], `"""`) || strings.HasPrefix(s[pos:], `'''`) {
		return 0, 0, false
	}
	e := stringEnd(s, pos)
	if e < 0 {
		return 0, 0, false
	}
	return pos + 1, e, true
}

func openMultiline(rest string) string {
	for _, delim := range []string{`"""`, `'''`} {
		if strings.HasPrefix(rest, delim) && !strings.Contains(rest[3:], delim) {
			return delim
		}
	}
	return ""
}

// bracketDelta counts unmatched array brackets in s, ignoring strings and
// trailing comments.
func bracketDelta(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\'':
			e := stringEnd(s, i)
			if e < 0 {
				return n
			}
			i = e
		case '#':
			return n
		case '[':
			n++
		case ']':
			n--
		}
	}
	return n
}

// inlineField is one key/value pair inside an inline table.
type inlineField struct {
	key        []string
	keyStart   int
	start, end int // value bounds within the line
}

// inlineFields parses the inline table opening at pos. It returns the
// top-level fields and the offset of the closing brace.
func inlineFields(s string, pos int) ([]inlineField, int, bool) {
	if pos >= len(s) || s[pos] != '{' {
		return nil, 0, false
	}
	var fields []inlineField
	p := pos + 1
	for {
		p = skipSpace(s, p)
		if p >= len(s) {
			return nil, 0, false
		}
		if s[p] == '}' {
			return fields, p, true
		}
		keyStart := p
		key, next, ok := parseKeyPath(s, p)
		if !ok {
			return nil, 0, false
		}
		p = skipSpace(s, next)
		if p >= len(s) || s[p] != '=' {
			return nil, 0, false
		}
		p = skipSpace(s, p+1)
		end, ok := valueEnd(s, p)
		if !ok {
			return nil, 0, false
		}
		fields = append(fields, inlineField{key: key, keyStart: keyStart, start: p, end: end})
		p = skipSpace(s, end)
		if p < len(s) && s[p] == ',' {
			p++
		}
	}
}

// valueEnd returns the offset just past the value starting at pos.
func valueEnd(s string, pos int) (int, bool) {
	if pos >= len(s) {
		return 0, false
	}
	switch s[pos] {
	case '"', '\'':
		e := stringEnd(s, pos)
		if e < 0 {
			return 0, false
		}
		return e + 1, true
	case '[', '{':
		depth := 0
		for i := pos; i < len(s); i++ {
			switch s[i] {
			case '"', '\'':
				e := stringEnd(s, i)
				if e < 0 {
					return 0, false
				}
				i = e
			case '[', '{':
				depth++
			case ']', '}':
				depth--
				if depth == 0 {
					return i + 1, true
				}
			}
		}
		return 0, false
	default:
		i := pos
		for i < len(s) && !strings.ContainsRune(",}] \t#", rune(s[i])) {
			i++
		}
		return i, i > pos
	}
}
