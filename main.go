package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"comicbook/internal/config"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "comicbook",
		Short:         "Turn a short story into an illustrated comic book",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.AddCommand(newServeCmd(), newGenerateCmd())
	return root
}

// loadConfig 加载配置、应用命令行覆盖并初始化日志
func loadConfig(override func(*config.Config)) (config.Config, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	if override != nil {
		override(&cfg)
	}
	closer, err := config.InitLogging(cfg)
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		closer.Close()
		return cfg, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"image_backend": cfg.ImageBackend,
		"planner":       cfg.Planner.Provider,
		"theme":         cfg.Theme,
	}).Debug("configuration loaded")
	return cfg, closer, nil
}
