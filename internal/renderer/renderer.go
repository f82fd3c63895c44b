package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"comicbook/internal/config"
	"comicbook/internal/model"
)

// ImageGenerator 根据提示词生成一张图片，返回可直接引用的 URL
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// PanelError 记录失败的分镜序号
type PanelError struct {
	Index int
	Err   error
}

func (e *PanelError) Error() string {
	return fmt.Sprintf("render panel %d: %v", e.Index, e.Err)
}

func (e *PanelError) Unwrap() error { return e.Err }

// Renderer 并发渲染所有分镜
type Renderer struct {
	gen         ImageGenerator
	concurrency int
	limiter     *rate.Limiter
}

// New 创建渲染器；concurrency<=0 表示不限制并发，limiter 可为 nil
func New(gen ImageGenerator, concurrency int, limiter *rate.Limiter) *Renderer {
	return &Renderer{gen: gen, concurrency: concurrency, limiter: limiter}
}

// NewFromConfig 按配置创建渲染器
func NewFromConfig(gen ImageGenerator, cfg config.RenderConfig) *Renderer {
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return New(gen, cfg.Concurrency, limiter)
}

// RenderAll 为每个分镜生成图片。结果与输入按序号一一对应，
// 任一分镜失败则整体失败，其余请求通过 ctx 取消。
func (r *Renderer) RenderAll(ctx context.Context, panels []model.Panel) ([]model.Panel, error) {
	if len(panels) == 0 {
		return nil, nil
	}
	start := time.Now()
	out := make([]model.Panel, len(panels))

	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, p := range panels {
		g.Go(func() error {
			if r.limiter != nil {
				if err := r.limiter.Wait(gctx); err != nil {
					return &PanelError{Index: i, Err: err}
				}
			}
			url, err := r.gen.GenerateImage(gctx, p.VisualDescription)
			if err != nil {
				return &PanelError{Index: i, Err: err}
			}
			out[i] = p.WithImage(url)
			logrus.WithFields(logrus.Fields{"panel": i, "elapsed": time.Since(start).String()}).Debug("panel rendered")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"panels": len(out), "elapsed": time.Since(start).String()}).Info("all panels rendered")
	return out, nil
}
