package research

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var (
	htmlTagPattern   = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>`)
	blankRunsPattern = regexp.MustCompile(`\n{3,}`)
)

// 少于该数量的标签视为普通文本。
const htmlTagThreshold = 3

// normalizeContent 把看起来像 HTML 的搜索内容转成 Markdown，转换失败时保留原文。
func normalizeContent(s string) string {
	s = strings.TrimSpace(s)
	if !looksLikeHTML(s) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	md = blankRunsPattern.ReplaceAllString(strings.TrimSpace(md), "\n\n")
	if md == "" {
		return s
	}
	return md
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return true
	}
	return len(htmlTagPattern.FindAllStringIndex(s, htmlTagThreshold)) >= htmlTagThreshold
}
