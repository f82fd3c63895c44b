package tools

import (
	"context"
	"encoding/json"
	"errors"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"comicbook/internal/model"
	"comicbook/internal/planner"
)

// PanelPlanTool 实现eino框架的分镜规划工具
type PanelPlanTool struct {
	planner planner.PanelPlanner
}

// PanelPlanArgs 分镜规划请求参数
type PanelPlanArgs struct {
	Story     string `json:"story"`     // 故事文本
	NumPanels int    `json:"numPanels"` // 分镜数量
}

// PanelPlanResp 分镜规划响应
type PanelPlanResp struct {
	Panels []model.Panel `json:"panels"`
	Count  int           `json:"count"`
}

// NewPanelPlanTool 创建分镜规划工具实例
func NewPanelPlanTool(p planner.PanelPlanner) *PanelPlanTool {
	return &PanelPlanTool{planner: p}
}

// Info 获取工具信息
func (t *PanelPlanTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"story":     {Type: schema.String, Required: true, Desc: "story text to split into comic panels"},
		"numPanels": {Type: schema.Integer, Required: false, Desc: "number of panels, 1-25, default 6"},
	}
	return &schema.ToolInfo{
		Name:        "panel_plan",
		Desc:        "Split a story into comic panels, each with a text-free image prompt and a caption",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun 执行分镜规划
func (t *PanelPlanTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args PanelPlanArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}
	if args.NumPanels == 0 {
		args.NumPanels = model.DefaultPanelCount
	}
	req := model.GenerationRequest{StoryText: args.Story, RequestedPanelCount: args.NumPanels}
	if err := req.Validate(); err != nil {
		return "", err
	}

	panels, err := t.planner.Plan(ctx, args.Story, args.NumPanels)
	if err != nil {
		return "", err
	}
	if len(panels) == 0 {
		return "", errors.New("no panels")
	}

	b, err := json.Marshal(PanelPlanResp{Panels: panels, Count: len(panels)})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// 确保PanelPlanTool实现了einotool.InvokableTool接口
var _ einotool.InvokableTool = (*PanelPlanTool)(nil)
