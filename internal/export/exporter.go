package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"comicbook/internal/config"
	"comicbook/internal/model"
)

// ErrEmptySelection 没有选中任何分镜
var ErrEmptySelection = errors.New("no panels selected")

// EmptySelectionMessage 展示给用户的提示
const EmptySelectionMessage = "Please select at least one panel to export."

// CardRenderer 生成单个分镜卡片的独立 HTML 页面
type CardRenderer interface {
	RenderCard(index int, panel model.Panel) (string, error)
}

// Exporter 把选中的分镜依次截图并拼成 PDF
type Exporter struct {
	cards  CardRenderer
	raster Rasterizer
	page   Page
}

func New(cards CardRenderer, raster Rasterizer, page Page) *Exporter {
	return &Exporter{cards: cards, raster: raster, page: page}
}

// NewFromConfig 使用 A4 页面和配置中的边距
func NewFromConfig(cards CardRenderer, raster Rasterizer, cfg config.ExportConfig) *Exporter {
	return New(cards, raster, A4(cfg.MarginMM))
}

// Export 按序号升序逐个处理选中的分镜，一页一张。
// 任何一步失败都会中止，不返回部分文档。
func (e *Exporter) Export(ctx context.Context, panels []model.Panel, sel model.ExportSelection) ([]byte, error) {
	sel = sel.Clamp(len(panels))
	if sel.IsEmpty() {
		return nil, ErrEmptySelection
	}

	start := time.Now()
	doc := NewDocument(e.page)
	for _, i := range sel.Indices() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		html, err := e.cards.RenderCard(i, panels[i])
		if err != nil {
			return nil, fmt.Errorf("render card %d: %w", i, err)
		}
		png, err := e.raster.Rasterize(ctx, html)
		if err != nil {
			return nil, fmt.Errorf("rasterize panel %d: %w", i, err)
		}
		place, err := doc.AddImagePage(png)
		if err != nil {
			return nil, fmt.Errorf("panel %d: %w", i, err)
		}
		logrus.WithFields(logrus.Fields{"panel": i, "w": place.W, "h": place.H}).Debug("panel added to pdf")
	}

	out, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"pages": doc.Pages(), "bytes": len(out), "elapsed": time.Since(start).String()}).Info("comic exported")
	return out, nil
}
