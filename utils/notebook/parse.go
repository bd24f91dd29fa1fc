package notebook

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/mouncefik/nbgen/utils/config"
)

var (
	// ErrEmptyInput is returned when the text to parse is empty or whitespace
	ErrEmptyInput = errors.New("cannot build notebook from empty AI response")
	// ErrNoContent is returned when no tagged section holds any content,
	// which means the completion ignored the required tag format
	ErrNoContent = errors.New("failed to parse any valid cells from the AI response")
)

// BlockKind distinguishes narrative text from executable code
type BlockKind int

const (
	Narrative BlockKind = iota
	Executable
)

func (k BlockKind) String() string {
	if k == Executable {
		return "executable"
	}
	return "narrative"
}

// Block is one non-empty, typed section of model output
type Block struct {
	Kind    BlockKind
	Content string
}

// ParseResult holds the blocks recovered from tagged text
type ParseResult struct {
	Blocks []Block
	// Preamble is the discarded text before the first marker, if any
	Preamble string
}

// Parse splits tagged text into blocks. Text before the first marker is
// dropped and reported in the result; sections with no content after
// trimming produce no block.
func Parse(raw string) (*ParseResult, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	result := &ParseResult{}
	var (
		current *BlockKind
		buf     strings.Builder
	)
	finalize := func() {
		if current == nil {
			return
		}
		if content := strings.TrimSpace(buf.String()); content != "" {
			result.Blocks = append(result.Blocks, Block{Kind: *current, Content: content})
		}
	}

	for _, tok := range lex(raw) {
		switch tok.kind {
		case tokenMarker:
			finalize()
			kind := tok.marker
			current = &kind
			buf.Reset()
		case tokenText:
			if current == nil {
				if preamble := strings.TrimSpace(tok.text); preamble != "" {
					result.Preamble = preamble
					config.Logger().Warnf("Ignoring content found before the first valid tag: %q", truncate(preamble, 100))
				}
				continue
			}
			buf.WriteString(tok.text)
		}
	}
	finalize()

	if len(result.Blocks) == 0 {
		config.Logger().Error("No cells were parsed. Check AI response format and tags.")
		return nil, ErrNoContent
	}

	config.DebugLog("Parsed %d blocks from %d bytes of AI response", len(result.Blocks), len(raw))
	return result, nil
}

// truncate keeps the first n runes of s
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
