package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"comicbook/internal/api"
	"comicbook/internal/config"
	"comicbook/internal/service"
	"comicbook/internal/tools"
	"comicbook/internal/web"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides COMIC_ADDR")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logCloser, err := loadConfig(func(c *config.Config) {
		if addr != "" {
			c.Addr = addr
		}
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化页面与服务
	pages, err := web.New(cfg.Theme, cfg.Export.CardWidthPx)
	if err != nil {
		return err
	}
	svc, err := service.Build(ctx, cfg, pages)
	if err != nil {
		return err
	}
	defer svc.Close()

	router := api.NewRouter(api.Options{
		Service:        svc,
		Pages:          pages,
		PlanTool:       tools.NewPanelPlanTool(svc.Planner()),
		ImageTool:      tools.NewPanelImageTool(svc.ImageGenerator()),
		ExportFileName: cfg.Export.FileName,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 在goroutine中启动服务器
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", cfg.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logrus.Info("shutting down server...")

	// 优雅关闭，等待进行中的生成请求
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logrus.Info("server stopped")
	return nil
}
