package planner

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"comicbook/internal/model"
)

// ErrNoPanels 模型没有返回任何可用分镜
var ErrNoPanels = errors.New("planner returned no panels")

const authorInstruction = `You are a comic book author. Your task is to take a story and break it down into a series of distinct panels with a consistent style.

First, define a consistent art style for the entire comic. For example: "vibrant comic book art, cel-shaded, simple backgrounds".
Second, create a detailed "character sheet" for any main characters to ensure visual consistency. Describe their appearance, clothing, and key features.

Then, for each panel, you must provide two things:
1. "imagePrompt": a visual prompt for an AI image generator. It MUST adhere to the defined art style and character sheets and repeat the relevant style and character details, because each prompt is used on its own without the rest of the story. Keep the scene simple, focusing only on the essential characters and action. The prompt MUST NOT contain any text, words, or letters, and must not ask for speech bubbles, signs or captions.
2. "text": the separate narration or dialogue text for that panel.

Respond in valid JSON only, in this format: {"panels": [{"imagePrompt": "...", "text": "..."}]}`

const userTemplate = `Create exactly {{.numPanels}} panels.

Story: {{.story}}`

// PanelPlanner 把故事拆成有序分镜
type PanelPlanner interface {
	Plan(ctx context.Context, story string, numPanels int) ([]model.Panel, error)
}

// Planner 基于 eino chain：模板 -> 对话模型 -> 解析
type Planner struct {
	runnable compose.Runnable[map[string]any, []model.Panel]
}

// New 创建规划器
func New(ctx context.Context, chatModel einomodel.BaseChatModel) (*Planner, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	tpl := prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(authorInstruction),
		schema.UserMessage(userTemplate),
	)

	chain := compose.NewChain[map[string]any, []model.Panel]()
	chain.
		AppendChatTemplate(tpl).
		AppendChatModel(chatModel).
		AppendLambda(compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) ([]model.Panel, error) {
			if msg == nil {
				return nil, errors.New("empty chat response")
			}
			return ParsePanels(msg.Content)
		}))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile planner chain: %w", err)
	}
	return &Planner{runnable: runnable}, nil
}

// Plan 请求恰好 numPanels 个分镜；多余的截断，少于请求数但非零时接受
func (p *Planner) Plan(ctx context.Context, story string, numPanels int) ([]model.Panel, error) {
	if numPanels < model.MinPanelCount || numPanels > model.MaxPanelCount {
		return nil, fmt.Errorf("panel count %d out of range", numPanels)
	}
	log := logrus.WithField("requested", numPanels)

	panels, err := p.runnable.Invoke(ctx, map[string]any{
		"story":     story,
		"numPanels": numPanels,
	})
	if err != nil {
		return nil, fmt.Errorf("plan panels: %w", err)
	}

	if len(panels) > numPanels {
		log.WithField("returned", len(panels)).Warn("planner returned more panels than requested, truncating")
		panels = panels[:numPanels]
	}
	if len(panels) == 0 {
		return nil, ErrNoPanels
	}
	if len(panels) < numPanels {
		log.WithField("returned", len(panels)).Warn("planner returned fewer panels than requested")
	}
	return panels, nil
}

var _ PanelPlanner = (*Planner)(nil)
