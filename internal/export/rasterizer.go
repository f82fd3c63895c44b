package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"comicbook/internal/config"
)

// CardSelector 分镜卡片根元素
const CardSelector = ".panel-card"

// imagesReadyJS 所有图片加载完成时返回 true，有图片加载失败时直接抛错
const imagesReadyJS = `() => {
	const imgs = Array.from(document.images);
	const broken = imgs.find(i => i.complete && i.naturalWidth === 0);
	if (broken) {
		throw new Error("panel image failed to load: " + broken.currentSrc);
	}
	return imgs.every(i => i.complete);
}`

// Rasterizer 把一张分镜卡片的 HTML 渲染成 PNG
type Rasterizer interface {
	Rasterize(ctx context.Context, html string) ([]byte, error)
}

// RodRasterizer 使用无头 Chrome 截图，浏览器在首次使用时启动
type RodRasterizer struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher

	bin     string
	width   int
	scale   float64
	timeout time.Duration
}

// NewRodRasterizer 创建截图器，不立即启动浏览器
func NewRodRasterizer(cfg config.ExportConfig) *RodRasterizer {
	r := &RodRasterizer{
		bin:     cfg.ChromeBin,
		width:   cfg.CardWidthPx,
		scale:   cfg.PixelRatio,
		timeout: cfg.RasterizeTimeout,
	}
	if r.width <= 0 {
		r.width = config.DefaultCardViewportWidthPx
	}
	if r.scale <= 0 {
		r.scale = config.DefaultExportPixelRatio
	}
	if r.timeout <= 0 {
		r.timeout = config.DefaultRasterizeTimeout
	}
	return r
}

func (r *RodRasterizer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(true)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	logrus.WithField("control_url", controlURL).Info("headless chrome started")
	r.browser = browser
	r.launcher = l
	return browser, nil
}

// Rasterize 以 DeviceScaleFactor 截取卡片元素，等待图片加载完成
func (r *RodRasterizer) Rasterize(ctx context.Context, html string) ([]byte, error) {
	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	p := page.Context(ctx).Timeout(r.timeout)
	defer p.CancelTimeout()
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             r.width,
		Height:            r.width * 2,
		DeviceScaleFactor: r.scale,
		Mobile:            false,
	}).Call(p); err != nil {
		return nil, fmt.Errorf("set device metrics: %w", err)
	}
	if err := p.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	if err := p.Wait(rod.Eval(imagesReadyJS)); err != nil {
		return nil, fmt.Errorf("wait for panel image: %w", err)
	}

	el, err := p.Element(CardSelector)
	if err != nil {
		return nil, fmt.Errorf("find card: %w", err)
	}
	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("screenshot card: %w", err)
	}
	return png, nil
}

// Close 关闭浏览器
func (r *RodRasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Kill()
	r.browser = nil
	r.launcher = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

var _ Rasterizer = (*RodRasterizer)(nil)
