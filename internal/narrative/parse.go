// Package narrative parses the light markup returned by the summarizer into
// display blocks: headings, paragraphs and bullet lists with bold spans.
package narrative

import (
	"regexp"
	"strings"
)

// Kind is the block type.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
)

// Heading levels.
const (
	LevelTop        = 1
	LevelSection    = 2
	LevelSubsection = 3
)

// Span is a run of inline text.
type Span struct {
	Text     string `json:"text"`
	Emphasis bool   `json:"emphasis,omitempty"`
}

// Block is one rendered unit. Headings and paragraphs carry Spans; lists carry Items.
type Block struct {
	Kind  Kind     `json:"kind"`
	Level int      `json:"level,omitempty"`
	Spans []Span   `json:"spans,omitempty"`
	Items [][]Span `json:"items,omitempty"`
}

var emphasisPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// Parse splits text into blocks. Consecutive bullet lines form one list; a
// blank line or any other line ends it.
func Parse(text string) []Block {
	var (
		blocks  []Block
		pending [][]Span
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		blocks = append(blocks, Block{Kind: KindList, Items: pending})
		pending = nil
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}
		if item, ok := bulletItem(line); ok {
			pending = append(pending, Inline(item))
			continue
		}
		flush()

		level := headingLevel(line)
		if level == 0 {
			blocks = append(blocks, Block{Kind: KindParagraph, Spans: Inline(line)})
			continue
		}
		content := strings.TrimSpace(strings.TrimLeft(line, "#"))
		if level > LevelSubsection {
			level = LevelSubsection
		}
		blocks = append(blocks, Block{Kind: KindHeading, Level: level, Spans: Inline(content)})
	}
	flush()
	return blocks
}

// Inline splits text on **bold** runs, keeping order and surrounding whitespace.
func Inline(text string) []Span {
	matches := emphasisPattern.FindAllStringSubmatchIndex(text, -1)
	spans := make([]Span, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			spans = append(spans, Span{Text: text[last:m[0]]})
		}
		spans = append(spans, Span{Text: text[m[2]:m[3]], Emphasis: true})
		last = m[1]
	}
	if last < len(text) {
		spans = append(spans, Span{Text: text[last:]})
	}
	return spans
}

func bulletItem(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}

func headingLevel(line string) int {
	return len(line) - len(strings.TrimLeft(line, "#"))
}
