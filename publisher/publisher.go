package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"agentic_research_writer/config"
	"agentic_research_writer/generator"
)

const defaultAPIBase = "https://api.weixin.qq.com"

const (
	accessTokenPath = "/cgi-bin/token"
	uploadImagePath = "/cgi-bin/material/add_material"
	uploadImgPath   = "/cgi-bin/media/uploadimg"
	addDraftPath    = "/cgi-bin/draft/add"
)

// ErrNotConfigured is returned when WeChat credentials are absent.
var ErrNotConfigured = errors.New("wechat app_id and app_secret are required")

// PublishParams describes the content to be published. Markdown takes
// precedence over MarkdownPath; Title and Digest are derived from the
// content when empty.
type PublishParams struct {
	Markdown     string
	MarkdownPath string
	// BaseDir resolves relative image paths; defaults to the markdown file's directory.
	BaseDir   string
	Title     string
	CoverPath string
	Author    string
	Digest    string
}

type wxResp struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type accessTokenResp struct {
	AccessToken string `json:"access_token"`
	wxResp
}

type uploadImageResp struct {
	MediaID string `json:"media_id"`
	wxResp
}

type uploadImgResp struct {
	URL string `json:"url"`
	wxResp
}

type addDraftResp struct {
	MediaID string `json:"media_id"`
	wxResp
}

type article struct {
	Title              string `json:"title"`
	Author             string `json:"author"`
	Digest             string `json:"digest"`
	Content            string `json:"content"`
	ThumbMediaID       string `json:"thumb_media_id"`
	NeedOpenComment    int    `json:"need_open_comment"`
	OnlyFansCanComment int    `json:"only_fans_can_comment"`
}

type addDraftPayload struct {
	Articles []article `json:"articles"`
}

// Publisher orchestrates conversion and upload to WeChat.
type Publisher struct {
	cfg         config.WeChatConfig
	client      *http.Client
	apiBase     string
	accessToken string
	logger      *zap.Logger
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithAPIBase points the publisher at a different API host.
func WithAPIBase(base string) Option {
	return func(p *Publisher) { p.apiBase = strings.TrimRight(base, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Publisher) { p.client = c }
}

// New creates a Publisher and fetches the access token immediately so it can be reused.
func New(ctx context.Context, cfg config.WeChatConfig, logger *zap.Logger, opts ...Option) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{
		cfg:     cfg,
		client:  &http.Client{Timeout: 60 * time.Second},
		apiBase: defaultAPIBase,
		logger:  logger.With(zap.String("component", "publisher")),
	}
	for _, opt := range opts {
		opt(p)
	}

	token, err := p.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	p.accessToken = token
	return p, nil
}

// PublishDraft converts markdown to WeChat-friendly HTML, uploads resources, and creates a draft.
func (p *Publisher) PublishDraft(ctx context.Context, params PublishParams) (string, error) {
	md := params.Markdown
	baseDir := params.BaseDir
	if md == "" && params.MarkdownPath != "" {
		data, err := os.ReadFile(params.MarkdownPath)
		if err != nil {
			return "", err
		}
		md = string(data)
		if baseDir == "" {
			baseDir = filepath.Dir(params.MarkdownPath)
		}
	}
	draft, err := generator.PostProcess(md)
	if err != nil {
		return "", errors.New("markdown content is required")
	}
	if params.CoverPath == "" {
		return "", errors.New("cover path is required")
	}
	md = draft.Markdown

	// 显式参数优先，否则使用稿件中提取的标题和摘要。
	title := firstNonEmpty(params.Title, draft.Title)
	if title == "" {
		return "", errors.New("title is required and none found in markdown")
	}
	digest := truncateRunes(firstNonEmpty(params.Digest, draft.Digest), 120)

	mdWithImages, err := p.replaceMarkdownImages(ctx, md, baseDir)
	if err != nil {
		return "", err
	}
	p.logger.Info("processed markdown and uploaded inline images")

	contentHTML, err := RenderHTML(mdWithImages)
	if err != nil {
		return "", err
	}
	contentHTML = normalizeForWeChat(contentHTML)
	p.logger.Info("converted markdown to WeChat html", zap.Int("bytes", len(contentHTML)))

	thumbMediaID, err := p.uploadImage(ctx, params.CoverPath)
	if err != nil {
		return "", err
	}
	p.logger.Info("uploaded cover image", zap.String("path", params.CoverPath), zap.String("media_id", thumbMediaID))

	art := article{
		Title:        title,
		Author:       firstNonEmpty(params.Author, p.cfg.Author),
		Digest:       digest,
		Content:      contentHTML,
		ThumbMediaID: thumbMediaID,
	}

	mediaID, err := p.addDraft(ctx, art)
	if err != nil {
		return "", err
	}
	p.logger.Info("draft created", zap.String("media_id", mediaID), zap.String("title", title))
	return mediaID, nil
}

func (p *Publisher) endpoint(path string, query url.Values) string {
	return p.apiBase + path + "?" + query.Encode()
}

func (p *Publisher) getAccessToken(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("grant_type", "client_credential")
	q.Set("appid", p.cfg.AppID)
	q.Set("secret", p.cfg.AppSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(accessTokenPath, q), nil)
	if err != nil {
		return "", err
	}

	var data accessTokenResp
	if err := p.do(req, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("failed to get access_token: %d %s", data.ErrCode, data.ErrMsg)
	}
	return data.AccessToken, nil
}

func (p *Publisher) uploadImage(ctx context.Context, imagePath string) (string, error) {
	q := url.Values{}
	q.Set("access_token", p.accessToken)
	q.Set("type", "image")
	var data uploadImageResp
	if err := p.uploadFile(ctx, p.endpoint(uploadImagePath, q), imagePath, &data); err != nil {
		return "", err
	}
	if data.MediaID == "" {
		return "", fmt.Errorf("failed to upload image: %d %s", data.ErrCode, data.ErrMsg)
	}
	return data.MediaID, nil
}

func (p *Publisher) uploadContentImage(ctx context.Context, imagePath string) (string, error) {
	q := url.Values{}
	q.Set("access_token", p.accessToken)
	var data uploadImgResp
	if err := p.uploadFile(ctx, p.endpoint(uploadImgPath, q), imagePath, &data); err != nil {
		return "", err
	}
	if data.URL == "" {
		return "", fmt.Errorf("failed to upload content image: %d %s", data.ErrCode, data.ErrMsg)
	}
	return data.URL, nil
}

func (p *Publisher) uploadFile(ctx context.Context, endpoint, path string, out any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return p.do(req, out)
}

func (p *Publisher) addDraft(ctx context.Context, art article) (string, error) {
	body, err := json.Marshal(addDraftPayload{Articles: []article{art}})
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("access_token", p.accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(addDraftPath, q), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var data addDraftResp
	if err := p.do(req, &data); err != nil {
		return "", err
	}
	if data.MediaID == "" {
		return "", fmt.Errorf("failed to add draft: %d %s", data.ErrCode, data.ErrMsg)
	}
	return data.MediaID, nil
}

func (p *Publisher) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

var imgPattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)

// 本地图片上传到微信后替换为返回的 URL，远程和 data: 图片保持不变。
func (p *Publisher) replaceMarkdownImages(ctx context.Context, md, baseDir string) (string, error) {
	matches := imgPattern.FindAllStringSubmatchIndex(md, -1)
	if len(matches) == 0 {
		return md, nil
	}

	var builder strings.Builder
	last := 0
	for _, match := range matches {
		if len(match) < 4 {
			continue
		}
		start, end := match[2], match[3]
		builder.WriteString(md[last:start])
		last = end

		imgRef := strings.TrimSpace(md[start:end])
		if strings.HasPrefix(imgRef, "http://") || strings.HasPrefix(imgRef, "https://") || strings.HasPrefix(imgRef, "data:") {
			builder.WriteString(imgRef)
			continue
		}
		localPath := imgRef
		if !filepath.IsAbs(localPath) && baseDir != "" {
			if _, statErr := os.Stat(localPath); statErr != nil {
				localPath = filepath.Join(baseDir, imgRef)
			}
		}
		uploadedURL, err := p.uploadContentImage(ctx, localPath)
		if err != nil {
			return "", err
		}
		builder.WriteString(uploadedURL)
	}
	builder.WriteString(md[last:])
	return builder.String(), nil
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
