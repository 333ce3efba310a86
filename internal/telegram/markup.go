package telegram

import "strings"

// Parse modes accepted by the Bot API.
const (
	ModeMarkdown   = "Markdown"
	ModeMarkdownV2 = "MarkdownV2"
	ModeHTML       = "HTML"
)

// RenderBold converts text marked with **bold** spans into the syntax of
// parseMode and escapes everything else for it. With an empty parse mode the
// text is returned unchanged. An unpaired marker is treated as plain text.
func RenderBold(text, parseMode string) string {
	if parseMode == "" {
		return text
	}

	parts := strings.Split(text, "**")
	if len(parts)%2 == 0 {
		// odd number of markers: the last one is literal
		last := len(parts) - 1
		parts[last-1] = parts[last-1] + "**" + parts[last]
		parts = parts[:last]
	}

	var b strings.Builder
	for i, part := range parts {
		if i%2 == 1 {
			b.WriteString(bold(escape(part, parseMode), parseMode))
			continue
		}
		b.WriteString(escape(part, parseMode))
	}
	return b.String()
}

func bold(s, parseMode string) string {
	if s == "" {
		return ""
	}
	if parseMode == ModeHTML {
		return "<b>" + s + "</b>"
	}
	return "*" + s + "*"
}

var (
	markdownEscaper   = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)
	markdownV2Escaper = strings.NewReplacer(
		`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
		"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`,
		"|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
	)
)

func escape(s, parseMode string) string {
	switch parseMode {
	case ModeHTML:
		return htmlEscape(s)
	case ModeMarkdownV2:
		return markdownV2Escaper.Replace(s)
	case ModeMarkdown:
		return markdownEscaper.Replace(s)
	default:
		return s
	}
}
