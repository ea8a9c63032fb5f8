package format

import (
	"strings"
)

// markdownSpecial Telegram MarkdownV2 需要转义的字符集
var markdownSpecial = [...]string{
	"_", "*", "[", "]", "(", ")", "~", "`", ">", "#",
	"+", "-", "=", "|", "{", "}", ".", "!",
}

var markdownReplacer = buildReplacer()

func buildReplacer() *strings.Replacer {
	pairs := make([]string, 0, len(markdownSpecial)*2)
	for _, ch := range markdownSpecial {
		pairs = append(pairs, ch, `\`+ch)
	}
	return strings.NewReplacer(pairs...)
}

// EscapeMarkdown 转义Markdown特殊字符，保证用户提供的文本安全展示
func EscapeMarkdown(text string) string {
	if text == "" {
		return ""
	}
	return markdownReplacer.Replace(text)
}
