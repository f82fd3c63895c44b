package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"comicbook/internal/renderer"
)

type PanelImageTool struct {
	gen renderer.ImageGenerator
}

type PanelImageArgs struct {
	Prompt string `json:"prompt"`
}

type PanelImageResp struct {
	ImageURL string `json:"imageUrl"`
}

func NewPanelImageTool(gen renderer.ImageGenerator) *PanelImageTool {
	return &PanelImageTool{gen: gen}
}

func (t *PanelImageTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"prompt": {Type: schema.String, Required: true, Desc: "visual description of a single panel, without any text"},
	}
	return &schema.ToolInfo{
		Name:        "panel_image",
		Desc:        "Generate one comic panel image and return its URL",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

func (t *PanelImageTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args PanelImageArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Prompt) == "" {
		return "", errors.New("prompt required")
	}
	url, err := t.gen.GenerateImage(ctx, args.Prompt)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(PanelImageResp{ImageURL: url})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*PanelImageTool)(nil)
