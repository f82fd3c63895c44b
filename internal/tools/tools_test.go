package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicbook/internal/model"
	"comicbook/internal/planner"
)

type stubGenerator struct{ prompt string }

func (s *stubGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return "https://img/1.png", nil
}

func TestPanelPlanTool(t *testing.T) {
	tool := NewPanelPlanTool(planner.MockPlanner{})

	info, err := tool.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "panel_plan", info.Name)

	out, err := tool.InvokableRun(context.Background(), `{"story":"The cat sat. The dog barked."}`)
	require.NoError(t, err)
	var resp PanelPlanResp
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, model.DefaultPanelCount, resp.Count)
	assert.Len(t, resp.Panels, model.DefaultPanelCount)
}

func TestPanelPlanTool_Invalid(t *testing.T) {
	tool := NewPanelPlanTool(planner.MockPlanner{})
	_, err := tool.InvokableRun(context.Background(), `{"story":"short","numPanels":3}`)
	var verrs model.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ByField(), "story")

	_, err = tool.InvokableRun(context.Background(), `not json`)
	assert.Error(t, err)
}

func TestPanelImageTool(t *testing.T) {
	gen := &stubGenerator{}
	tool := NewPanelImageTool(gen)

	info, err := tool.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "panel_image", info.Name)
	assert.NotNil(t, info.ParamsOneOf)

	out, err := tool.InvokableRun(context.Background(), `{"prompt":"a lighthouse in a storm"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"imageUrl":"https://img/1.png"}`, out)
	assert.Equal(t, "a lighthouse in a storm", gen.prompt)

	_, err = tool.InvokableRun(context.Background(), `{"prompt":"  "}`)
	assert.Error(t, err)
}
