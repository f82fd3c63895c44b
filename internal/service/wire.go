package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"comicbook/internal/config"
	"comicbook/internal/export"
	"comicbook/internal/planner"
	"comicbook/internal/renderer"
	"comicbook/internal/replicate"
	"comicbook/internal/store"
	"comicbook/internal/volc"
)

// NewImageGenerator 按配置选择图片后端
func NewImageGenerator(cfg config.Config) (renderer.ImageGenerator, error) {
	switch cfg.ImageBackend {
	case config.BackendReplicate, "":
		c, err := replicate.NewClient(cfg.Replicate)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendArk:
		c, err := volc.NewArkClient(cfg.Ark)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown image backend %q", cfg.ImageBackend)
	}
}

// Build 组装完整服务，cards 用于导出时渲染分镜卡片
func Build(ctx context.Context, cfg config.Config, cards export.CardRenderer) (*ComicService, error) {
	p, err := planner.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gen, err := NewImageGenerator(cfg)
	if err != nil {
		return nil, err
	}
	raster := export.NewRodRasterizer(cfg.Export)

	svc := NewComicService(
		p,
		renderer.NewFromConfig(gen, cfg.Render),
		export.NewFromConfig(cards, raster, cfg.Export),
		store.New(cfg.ComicTTL),
	)
	svc.images = gen
	svc.closers = append(svc.closers, raster.Close)

	logrus.WithFields(logrus.Fields{
		"image_backend": cfg.ImageBackend,
		"planner":       cfg.Planner.Provider,
		"model":         cfg.Planner.Model,
	}).Info("comic service ready")
	return svc, nil
}
