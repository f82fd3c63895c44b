package planner

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"

	"comicbook/internal/config"
)

// NewChatModel 按配置创建对话模型
func NewChatModel(ctx context.Context, cfg config.Config) (einomodel.BaseChatModel, error) {
	var temperature *float32
	if cfg.Planner.Temperature > 0 {
		t := cfg.Planner.Temperature
		temperature = &t
	}

	switch cfg.Planner.Provider {
	case config.ProviderArk, "":
		cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:      cfg.Ark.APIKey,
			HTTPClient:  &http.Client{Timeout: cfg.Ark.HTTPTimeout},
			Model:       cfg.Planner.Model,
			Temperature: temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return cm, nil
	case config.ProviderOpenAI:
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.Planner.OpenAIAPIKey,
			BaseURL:     cfg.Planner.OpenAIBaseURL,
			Model:       cfg.Planner.Model,
			Temperature: temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unknown planner provider %q", cfg.Planner.Provider)
	}
}

// NewFromConfig 创建规划器；mock 模式下不访问任何模型
func NewFromConfig(ctx context.Context, cfg config.Config) (PanelPlanner, error) {
	if cfg.Ark.Mock {
		logrus.Info("planner running in mock mode")
		return MockPlanner{}, nil
	}
	cm, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(ctx, cm)
}
