package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic_research_writer/config"
)

type fakeWeChat struct {
	mu       sync.Mutex
	uploads  int
	articles []article
	tokenErr bool
}

func (f *fakeWeChat) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(accessTokenPath, func(w http.ResponseWriter, r *http.Request) {
		if f.tokenErr {
			_, _ = w.Write([]byte(`{"errcode": 40013, "errmsg": "invalid appid"}`))
			return
		}
		assert.Equal(t, "wx1", r.URL.Query().Get("appid"))
		_, _ = w.Write([]byte(`{"access_token": "tok", "expires_in": 7200}`))
	})
	mux.HandleFunc(uploadImagePath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		_, _, err := r.FormFile("media")
		assert.NoError(t, err)
		_, _ = w.Write([]byte(`{"media_id": "thumb-1"}`))
	})
	mux.HandleFunc(uploadImgPath, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.uploads++
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"url": "https://mmbiz.example/img.png"}`))
	})
	mux.HandleFunc(addDraftPath, func(w http.ResponseWriter, r *http.Request) {
		var payload addDraftPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		f.mu.Lock()
		f.articles = append(f.articles, payload.Articles...)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"media_id": "draft-1"}`))
	})
	return mux
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

var wxCfg = config.WeChatConfig{AppID: "wx1", AppSecret: "secret", Author: "Bot"}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), config.WeChatConfig{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewTokenFailure(t *testing.T) {
	fake := &fakeWeChat{tokenErr: true}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	_, err := New(context.Background(), wxCfg, nil, WithAPIBase(srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "40013")
}

func TestPublishDraftFromContent(t *testing.T) {
	fake := &fakeWeChat{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	dir := t.TempDir()
	cover := writeFile(t, dir, "cover.png", "png")
	writeFile(t, dir, "fig.png", "png")

	p, err := New(context.Background(), wxCfg, nil, WithAPIBase(srv.URL+"/"))
	require.NoError(t, err)

	md := "# Go 泛型入门\n\n泛型让代码更通用。\n\n![fig](fig.png)\n\n![remote](https://cdn.example/a.png)\n\n- one\n- two\n"
	mediaID, err := p.PublishDraft(context.Background(), PublishParams{
		Markdown:  md,
		BaseDir:   dir,
		CoverPath: cover,
	})
	require.NoError(t, err)
	assert.Equal(t, "draft-1", mediaID)

	assert.Equal(t, 1, fake.uploads)
	require.Len(t, fake.articles, 1)
	art := fake.articles[0]
	assert.Equal(t, "Go 泛型入门", art.Title)
	assert.Equal(t, "泛型让代码更通用。", art.Digest)
	assert.Equal(t, "Bot", art.Author)
	assert.Equal(t, "thumb-1", art.ThumbMediaID)
	assert.Contains(t, art.Content, "https://mmbiz.example/img.png")
	assert.Contains(t, art.Content, "https://cdn.example/a.png")
	assert.Contains(t, art.Content, "<p>• one</p>")
}

func TestPublishDraftFromFile(t *testing.T) {
	fake := &fakeWeChat{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	dir := t.TempDir()
	cover := writeFile(t, dir, "cover.png", "png")
	mdPath := writeFile(t, dir, "post.md", "plain body without heading\n")

	p, err := New(context.Background(), wxCfg, nil, WithAPIBase(srv.URL))
	require.NoError(t, err)

	_, err = p.PublishDraft(context.Background(), PublishParams{MarkdownPath: mdPath, CoverPath: cover})
	assert.ErrorContains(t, err, "title")

	_, err = p.PublishDraft(context.Background(), PublishParams{
		MarkdownPath: mdPath,
		CoverPath:    cover,
		Title:        "Explicit",
		Author:       "Me",
	})
	require.NoError(t, err)
	require.Len(t, fake.articles, 1)
	assert.Equal(t, "Explicit", fake.articles[0].Title)
	assert.Equal(t, "Me", fake.articles[0].Author)
}

func TestPublishDraftValidation(t *testing.T) {
	fake := &fakeWeChat{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	p, err := New(context.Background(), wxCfg, nil, WithAPIBase(srv.URL))
	require.NoError(t, err)

	_, err = p.PublishDraft(context.Background(), PublishParams{CoverPath: "c.png"})
	assert.Error(t, err)
	_, err = p.PublishDraft(context.Background(), PublishParams{Markdown: "# T"})
	assert.ErrorContains(t, err, "cover")
}

func TestPublishDraftDigestFallsBackToContent(t *testing.T) {
	fake := &fakeWeChat{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	dir := t.TempDir()
	cover := writeFile(t, dir, "cover.png", "png")

	p, err := New(context.Background(), wxCfg, nil, WithAPIBase(srv.URL))
	require.NoError(t, err)

	_, err = p.PublishDraft(context.Background(), PublishParams{
		Markdown:  "```markdown\n# Only A Heading\n```",
		CoverPath: cover,
	})
	require.NoError(t, err)
	require.Len(t, fake.articles, 1)
	assert.Equal(t, "Only A Heading", fake.articles[0].Title)
	assert.Equal(t, "# Only A Heading", fake.articles[0].Digest)
	assert.NotContains(t, fake.articles[0].Content, "```")
}
