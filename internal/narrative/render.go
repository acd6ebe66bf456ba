package narrative

import (
	"html"
	"strings"
)

// RenderHTML renders blocks as an HTML fragment. All text is escaped.
func RenderHTML(blocks []Block) string {
	var b strings.Builder
	for _, block := range blocks {
		switch block.Kind {
		case KindHeading:
			tag := headingTag(block.Level)
			b.WriteString("<" + tag + ">")
			writeSpansHTML(&b, block.Spans)
			b.WriteString("</" + tag + ">\n")
		case KindList:
			b.WriteString("<ul>\n")
			for _, item := range block.Items {
				b.WriteString("<li>")
				writeSpansHTML(&b, item)
				b.WriteString("</li>\n")
			}
			b.WriteString("</ul>\n")
		default:
			b.WriteString("<p>")
			writeSpansHTML(&b, block.Spans)
			b.WriteString("</p>\n")
		}
	}
	return b.String()
}

// RenderText renders blocks for a terminal: headings underlined, list items
// bulleted, emphasis dropped.
func RenderText(blocks []Block) string {
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		switch block.Kind {
		case KindHeading:
			text := PlainText(block.Spans)
			b.WriteString(text + "\n")
			rule := "-"
			if block.Level == LevelTop {
				rule = "="
			}
			b.WriteString(strings.Repeat(rule, len([]rune(text))) + "\n")
		case KindList:
			for _, item := range block.Items {
				b.WriteString("  • " + PlainText(item) + "\n")
			}
		default:
			b.WriteString(PlainText(block.Spans) + "\n")
		}
	}
	return b.String()
}

// PlainText joins spans without markup.
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

func writeSpansHTML(b *strings.Builder, spans []Span) {
	for _, s := range spans {
		if s.Emphasis {
			b.WriteString("<strong>" + html.EscapeString(s.Text) + "</strong>")
			continue
		}
		b.WriteString(html.EscapeString(s.Text))
	}
}

func headingTag(level int) string {
	switch level {
	case LevelTop:
		return "h2"
	case LevelSection:
		return "h3"
	default:
		return "h4"
	}
}
