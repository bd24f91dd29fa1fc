package notebook

import "strings"

const (
	// MarkdownTag opens a narrative section
	MarkdownTag = "[MARKDOWN]"
	// CodeTag opens an executable section
	CodeTag = "[CODE]"
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenMarker
)

// token is either a marker line or a span of consecutive non-marker lines
type token struct {
	kind   tokenKind
	marker BlockKind
	text   string
}

// markerKind reports the block kind a line opens, if it is a marker line
func markerKind(line string) (BlockKind, bool) {
	switch strings.TrimSpace(line) {
	case MarkdownTag:
		return Narrative, true
	case CodeTag:
		return Executable, true
	}
	return 0, false
}

// lex splits raw into marker and text tokens. A line is a marker only when
// its trimmed content equals a tag exactly; text spans keep their line
// breaks.
func lex(raw string) []token {
	var (
		tokens []token
		span   []string
	)
	flush := func() {
		if len(span) > 0 {
			tokens = append(tokens, token{kind: tokenText, text: strings.Join(span, "\n")})
			span = nil
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		if kind, ok := markerKind(line); ok {
			flush()
			tokens = append(tokens, token{kind: tokenMarker, marker: kind})
			continue
		}
		span = append(span, strings.TrimSuffix(line, "\r"))
	}
	flush()

	return tokens
}
