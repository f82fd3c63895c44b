package volc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"comicbook/internal/config"
)

// 与 700x980 同比例（5:7），满足 Seedream 的最小像素要求
const DefaultSize = "1440x2016"

var (
	ErrMissingAPIKey = errors.New("ARK_API_KEY is not set")
	ErrNoImages      = errors.New("no images returned")
)

type ArkClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	Size       string
	HTTPClient *http.Client
	Mock       bool
}

// NewArkClient 创建方舟图片客户端，缺少 key 时立即失败
func NewArkClient(cfg config.ArkConfig) (*ArkClient, error) {
	if cfg.APIKey == "" && !cfg.Mock {
		return nil, ErrMissingAPIKey
	}
	c := &ArkClient{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:     cfg.APIKey,
		Model:      cfg.ImageModel,
		Size:       DefaultSize,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Mock:       cfg.Mock,
	}
	if c.BaseURL == "" {
		c.BaseURL = config.DefaultArkBaseURL
	}
	if c.Model == "" {
		c.Model = config.DefaultArkImageModel
	}
	return c, nil
}

type ImageGenParams struct {
	Model  string
	Prompt string
	Size   string
}

// GenerateImage 生成单张图片，返回 URL（或 data URL）
func (c *ArkClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	urls, err := c.GenerateImages(ctx, ImageGenParams{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return urls[0], nil
}

func (c *ArkClient) GenerateImages(ctx context.Context, p ImageGenParams) ([]string, error) {
	if c.Mock {
		// 1x1 PNG pixel base64
		pixel := "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII="
		return []string{"data:image/png;base64," + pixel}, nil
	}
	if p.Model == "" {
		p.Model = c.Model
	}
	if p.Size == "" {
		p.Size = c.Size
	}
	body := map[string]any{
		"model":           p.Model,
		"prompt":          p.Prompt,
		"size":            p.Size,
		"watermark":       false,
		"response_format": "url",
	}

	var resp struct {
		Data []struct {
			URL    string `json:"url"`
			B64    string `json:"b64_json"`
			Format string `json:"format"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/api/v3/images/generations", body, &resp); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
			continue
		}
		if d.B64 != "" {
			fmtType := d.Format
			if fmtType == "" {
				fmtType = "png"
			}
			urls = append(urls, "data:image/"+fmtType+";base64,"+d.B64)
		}
	}
	if len(urls) == 0 {
		return nil, ErrNoImages
	}
	return urls, nil
}

func (c *ArkClient) postJSON(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(string(b)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	logrus.WithField("url", req.URL.String()).Debug("ark request")
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", res.StatusCode, string(bodyBytes))
	}
	return json.Unmarshal(bodyBytes, out)
}
