package generator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	titleRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	// 整篇被 ```markdown 包裹时去掉外层围栏
	wrappedRe = regexp.MustCompile("(?s)^```(?:markdown|md)?\\s*\n(.*)\n```$")
)

// PostProcess 校验并补全 Draft 基础字段。
func PostProcess(raw string) (Draft, error) {
	md := strings.TrimSpace(raw)
	if m := wrappedRe.FindStringSubmatch(md); m != nil {
		md = strings.TrimSpace(m[1])
	}
	if md == "" {
		return Draft{}, errors.New("model returned empty markdown")
	}

	digest := ExtractDigest(md)
	if digest == "" {
		digest = defaultDigest(md, 120)
	}

	return Draft{
		Title:    ExtractTitle(md),
		Digest:   digest,
		Markdown: md,
	}, nil
}

// ExtractTitle 返回第一个一级标题。
func ExtractTitle(md string) string {
	m := titleRe.FindStringSubmatch(md)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ExtractDigest 摘要取首段（去掉标题行）。
func ExtractDigest(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

func defaultDigest(md string, limit int) string {
	joined := strings.Join(strings.Fields(md), " ")
	runes := []rune(joined)
	if len(runes) <= limit {
		return joined
	}
	return string(runes[:limit])
}
