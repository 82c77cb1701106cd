package research

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider 离线搜索实现，返回固定的示例结果。
type MockProvider struct{}

func (MockProvider) Search(_ context.Context, query string, maxResults int) (*Response, error) {
	if maxResults <= 0 || maxResults > 3 {
		maxResults = 3
	}
	slug := strings.ToLower(strings.Join(strings.Fields(query), "-"))
	resp := &Response{Query: query}
	for i := 1; i <= maxResults; i++ {
		resp.Results = append(resp.Results, Result{
			Title:   fmt.Sprintf("%s (%d)", query, i),
			URL:     fmt.Sprintf("https://example.com/%s/%d", slug, i),
			Content: fmt.Sprintf("Offline placeholder content %d about %s.", i, query),
		})
	}
	return resp, nil
}

func (MockProvider) Name() string {
	return "mock"
}
