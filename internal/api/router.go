package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"comicbook/internal/config"
	"comicbook/internal/model"
	"comicbook/internal/store"
	"comicbook/internal/web"
)

// ComicService 处理器依赖的业务接口
type ComicService interface {
	Generate(ctx context.Context, req model.GenerationRequest) (string, model.GenerationResult)
	Comic(id string) (store.Comic, error)
	Export(ctx context.Context, id string, sel model.ExportSelection) ([]byte, error)
}

// Options 路由依赖
type Options struct {
	Service        ComicService
	Pages          *web.Renderer
	PlanTool       einotool.InvokableTool
	ImageTool      einotool.InvokableTool
	ExportFileName string
}

type handler struct {
	svc      ComicService
	pages    *web.Renderer
	fileName string
}

// NewRouter 创建gin路由
func NewRouter(opts Options) *gin.Engine {
	if opts.ExportFileName == "" {
		opts.ExportFileName = config.DefaultExportFileName
	}
	h := &handler{svc: opts.Service, pages: opts.Pages, fileName: opts.ExportFileName}

	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())
	router.SetHTMLTemplate(opts.Pages.Templates())

	router.GET("/", h.index)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	comics := router.Group("/comics")
	comics.POST("", h.generate)
	comics.GET("/:id", h.show)
	comics.GET("/:id/panels/:index/card", h.card)
	comics.GET("/:id/panels/:index/image", h.image)
	comics.POST("/:id/export", h.exportPDF)

	if opts.PlanTool != nil {
		router.POST("/tools/panel-plan", handleTool(opts.PlanTool))
	}
	if opts.ImageTool != nil {
		router.POST("/tools/panel-image", handleTool(opts.ImageTool))
	}
	return router
}

// requestLogger 使用logrus记录请求
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// handleTool 直接读取请求体作为工具参数
func handleTool(tool einotool.InvokableTool) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil || len(body) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		result, err := tool.InvokableRun(c.Request.Context(), string(body))
		if err != nil {
			var verrs model.ValidationErrors
			if errors.As(err, &verrs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": verrs.Error(), "fields": verrs.ByField()})
				return
			}
			logrus.WithError(err).Error("tool invocation failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "tool invocation failed"})
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(result))
	}
}
