package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"comicbook/internal/config"
)

const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"

	predictionsPath = "/v1/predictions"
	cancelTimeout   = 10 * time.Second
)

// 1x1 PNG
const mockImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII="

var errStillRunning = errors.New("prediction still running")

type Client struct {
	BaseURL      string
	APIToken     string
	ModelVersion string
	Width        int
	Height       int
	PollInterval time.Duration
	MaxAttempts  int
	HTTPClient   *http.Client
	Mock         bool
}

// NewClient 创建客户端，缺少 token 时立即失败
func NewClient(cfg config.ReplicateConfig) (*Client, error) {
	if cfg.APIToken == "" && !cfg.Mock {
		return nil, ErrMissingToken
	}
	c := &Client{
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		APIToken:     cfg.APIToken,
		ModelVersion: cfg.ModelVersion,
		Width:        cfg.Width,
		Height:       cfg.Height,
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.PollMaxAttempts,
		HTTPClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		Mock:         cfg.Mock,
	}
	if c.BaseURL == "" {
		c.BaseURL = config.DefaultReplicateBaseURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = config.DefaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = config.DefaultPollMaxAttempts
	}
	if c.Width == 0 {
		c.Width = config.DefaultImageWidth
	}
	if c.Height == 0 {
		c.Height = config.DefaultImageHeight
	}
	return c, nil
}

type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	URLs   struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
}

// Terminal 是否为终态
func (p *Prediction) Terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Outputs 兼容 output 为字符串数组或单个字符串
func (p *Prediction) Outputs() []string {
	if len(p.Output) == 0 || string(p.Output) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(p.Output, &list); err == nil {
		out := list[:0]
		for _, u := range list {
			if u != "" {
				out = append(out, u)
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

// GenerateImage 提交任务并轮询到终态，返回第一张图片的 URL
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if c.Mock {
		return mockImage, nil
	}

	pred, err := c.CreatePrediction(ctx, prompt)
	if err != nil {
		return "", err
	}
	log := logrus.WithField("prediction_id", pred.ID)
	log.WithField("status", pred.Status).Debug("prediction created")

	pred, err = c.Wait(ctx, pred)
	if err != nil {
		return "", err
	}

	switch pred.Status {
	case StatusFailed, StatusCanceled:
		return "", &PredictionError{ID: pred.ID, Status: pred.Status, Detail: pred.Error}
	}
	outputs := pred.Outputs()
	if len(outputs) == 0 {
		return "", fmt.Errorf("prediction %s: %w", pred.ID, ErrNoOutput)
	}
	log.Debug("prediction succeeded")
	return outputs[0], nil
}

// CreatePrediction 提交生成任务
func (c *Client) CreatePrediction(ctx context.Context, prompt string) (*Prediction, error) {
	body := map[string]any{
		"version": c.ModelVersion,
		"input": map[string]any{
			"prompt": prompt,
			"width":  c.Width,
			"height": c.Height,
		},
	}
	var pred Prediction
	if err := c.doJSON(ctx, http.MethodPost, c.BaseURL+predictionsPath, body, &pred, "create prediction"); err != nil {
		return nil, err
	}
	return &pred, nil
}

// GetPrediction 查询任务状态
func (c *Client) GetPrediction(ctx context.Context, getURL string) (*Prediction, error) {
	var pred Prediction
	if err := c.doJSON(ctx, http.MethodGet, getURL, nil, &pred, "get prediction"); err != nil {
		return nil, err
	}
	return &pred, nil
}

// CancelPrediction 取消任务，尽力而为
func (c *Client) CancelPrediction(ctx context.Context, pred *Prediction) error {
	cancelURL := pred.URLs.Cancel
	if cancelURL == "" {
		cancelURL = c.BaseURL + predictionsPath + "/" + pred.ID + "/cancel"
	}
	var out Prediction
	return c.doJSON(ctx, http.MethodPost, cancelURL, nil, &out, "cancel prediction")
}

// Wait 以固定间隔轮询，最多 MaxAttempts 次。
// 超过次数返回 ErrTimedOut；超时或 ctx 取消时会尝试取消远端任务。
func (c *Client) Wait(ctx context.Context, pred *Prediction) (*Prediction, error) {
	if pred.Terminal() {
		return pred, nil
	}
	getURL := pred.URLs.Get
	if getURL == "" {
		getURL = c.BaseURL + predictionsPath + "/" + pred.ID
	}

	log := logrus.WithField("prediction_id", pred.ID)
	current := pred
	attempt := 0

	timer := time.NewTimer(c.PollInterval)
	select {
	case <-ctx.Done():
		timer.Stop()
		c.cancelRemote(ctx, pred)
		return nil, ctx.Err()
	case <-timer.C:
	}

	op := func() error {
		attempt++
		p, err := c.GetPrediction(ctx, getURL)
		if err != nil {
			return backoff.Permanent(err)
		}
		current = p
		if p.Terminal() {
			return nil
		}
		return errStillRunning
	}
	notify := func(err error, next time.Duration) {
		log.WithFields(logrus.Fields{"attempt": attempt, "status": current.Status}).Trace("polling prediction")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.PollInterval), uint64(c.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		switch {
		case errors.Is(err, errStillRunning):
			log.WithField("attempts", attempt).Warn("prediction timed out, cancelling")
			c.cancelRemote(ctx, current)
			return nil, fmt.Errorf("prediction %s after %d polls: %w", pred.ID, attempt, ErrTimedOut)
		case ctx.Err() != nil:
			c.cancelRemote(ctx, current)
			return nil, ctx.Err()
		default:
			return nil, err
		}
	}
	return current, nil
}

func (c *Client) cancelRemote(ctx context.Context, pred *Prediction) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if err := c.CancelPrediction(cctx, pred); err != nil {
		logrus.WithField("prediction_id", pred.ID).WithError(err).Warn("cancel prediction failed")
	}
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any, out any, op string) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	req.Header.Set("Content-Type", "application/json")
	logrus.WithFields(logrus.Fields{"method": method, "url": url}).Debug("replicate request")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{Op: op, StatusCode: res.StatusCode, Body: string(bodyBytes)}
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
