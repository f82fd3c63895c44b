package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"comicbook/internal/export"
	"comicbook/internal/model"
	"comicbook/internal/planner"
	"comicbook/internal/renderer"
	"comicbook/internal/store"
)

// 展示给用户的错误信息，不包含上游细节
const (
	MsgValidation = "Please fix the highlighted fields and try again."
	MsgUpstream   = "Something went wrong while creating your comic. Please try again."
	MsgNoPanels   = "Could not generate any comic panels from your story. Please try a different story."
	MsgExport     = "Something went wrong while exporting your comic. Please try again."
	MsgNotFound   = "This comic is no longer available. Please generate it again."
)

// PanelRenderer 为所有分镜生成图片
type PanelRenderer interface {
	RenderAll(ctx context.Context, panels []model.Panel) ([]model.Panel, error)
}

// ComicExporter 把选中的分镜导出为 PDF
type ComicExporter interface {
	Export(ctx context.Context, panels []model.Panel, sel model.ExportSelection) ([]byte, error)
}

// ExportError 导出失败，Message 可直接展示给用户
type ExportError struct {
	Message string
	Err     error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ComicService 漫画生成流程：校验 -> 规划 -> 渲染 -> 保存
type ComicService struct {
	planner  planner.PanelPlanner
	renderer PanelRenderer
	exporter ComicExporter
	store    *store.ComicStore
	images   renderer.ImageGenerator
	closers  []func() error
}

func NewComicService(p planner.PanelPlanner, r PanelRenderer, e ComicExporter, s *store.ComicStore) *ComicService {
	return &ComicService{planner: p, renderer: r, exporter: e, store: s}
}

// Generate 运行完整流程。所有错误都转换为 GenerationResult，成功时返回漫画 id。
func (s *ComicService) Generate(ctx context.Context, req model.GenerationRequest) (string, model.GenerationResult) {
	if err := req.Validate(); err != nil {
		var verrs model.ValidationErrors
		if errors.As(err, &verrs) {
			return "", model.ErrFields(MsgValidation, verrs.ByField())
		}
		return "", model.Err(model.FailureValidation, err.Error())
	}

	story := strings.TrimSpace(req.StoryText)
	log := logrus.WithFields(logrus.Fields{"panels": req.RequestedPanelCount, "story_len": len(story)})
	start := time.Now()

	panels, err := s.planner.Plan(ctx, story, req.RequestedPanelCount)
	if errors.Is(err, planner.ErrNoPanels) || (err == nil && len(panels) == 0) {
		log.Warn("planner produced no panels")
		return "", model.Err(model.FailureNoPanels, MsgNoPanels)
	}
	if err != nil {
		log.WithError(err).Error("panel planning failed")
		return "", model.Err(model.FailureUpstream, MsgUpstream)
	}
	log.WithField("planned", len(panels)).Info("panels planned")

	rendered, err := s.renderer.RenderAll(ctx, panels)
	if err != nil {
		log.WithError(err).Error("panel rendering failed")
		return "", model.Err(model.FailureUpstream, MsgUpstream)
	}

	comic := s.store.Save(story, rendered)
	log.WithFields(logrus.Fields{"comic": comic.ID, "elapsed": time.Since(start).String()}).Info("comic generated")
	return comic.ID, model.Ok(rendered)
}

// Comic 读取已生成的漫画
func (s *ComicService) Comic(id string) (store.Comic, error) {
	return s.store.Get(id)
}

// Export 导出漫画中选中的分镜，失败时漫画仍然保留
func (s *ComicService) Export(ctx context.Context, id string, sel model.ExportSelection) ([]byte, error) {
	comic, err := s.store.Get(id)
	if err != nil {
		return nil, &ExportError{Message: MsgNotFound, Err: err}
	}
	pdf, err := s.exporter.Export(ctx, comic.Panels, sel)
	if errors.Is(err, export.ErrEmptySelection) {
		return nil, &ExportError{Message: export.EmptySelectionMessage, Err: err}
	}
	if err != nil {
		logrus.WithError(err).WithField("comic", id).Error("export failed")
		return nil, &ExportError{Message: MsgExport, Err: err}
	}
	return pdf, nil
}

// Planner 分镜规划器
func (s *ComicService) Planner() planner.PanelPlanner { return s.planner }

// ImageGenerator 图片后端，未通过 Build 创建时为 nil
func (s *ComicService) ImageGenerator() renderer.ImageGenerator { return s.images }

// Close 释放导出用的浏览器等资源
func (s *ComicService) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
