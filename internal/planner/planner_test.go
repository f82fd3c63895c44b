package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func newTestPlanner(t *testing.T, cm *fakeChatModel) *Planner {
	p, err := New(context.Background(), cm)
	require.NoError(t, err)
	return p
}

func TestPlan_ExactCount(t *testing.T) {
	cm := &fakeChatModel{reply: `{"panels":[
		{"imagePrompt":"a fox in a red scarf at the forest edge","text":"Once upon a time"},
		{"imagePrompt":"the fox meets an owl on a branch","text":"A new friend"}]}`}
	p := newTestPlanner(t, cm)

	panels, err := p.Plan(context.Background(), "A fox walks into the woods and meets an owl.", 2)
	require.NoError(t, err)
	require.Len(t, panels, 2)
	assert.Equal(t, "a fox in a red scarf at the forest edge", panels[0].VisualDescription)
	assert.Equal(t, "Once upon a time", panels[0].CaptionText)
	assert.False(t, panels[0].HasImage())

	require.Len(t, cm.input, 2)
	assert.Equal(t, schema.System, cm.input[0].Role)
	assert.Contains(t, cm.input[0].Content, "MUST NOT contain any text")
	assert.Contains(t, cm.input[1].Content, "Create exactly 2 panels.")
	assert.Contains(t, cm.input[1].Content, "A fox walks into the woods")
}

func TestPlan_TruncatesExtraPanels(t *testing.T) {
	cm := &fakeChatModel{reply: `{"panels":[{"imagePrompt":"a","text":"1"},{"imagePrompt":"b","text":"2"},{"imagePrompt":"c","text":"3"}]}`}
	panels, err := newTestPlanner(t, cm).Plan(context.Background(), "some long story", 2)
	require.NoError(t, err)
	require.Len(t, panels, 2)
	assert.Equal(t, "b", panels[1].VisualDescription)
}

func TestPlan_AcceptsFewerPanels(t *testing.T) {
	cm := &fakeChatModel{reply: `{"panels":[{"imagePrompt":"a","text":"1"}]}`}
	panels, err := newTestPlanner(t, cm).Plan(context.Background(), "some long story", 4)
	require.NoError(t, err)
	assert.Len(t, panels, 1)
}

func TestPlan_NoPanels(t *testing.T) {
	for _, reply := range []string{
		`{"panels":[]}`,
		`{"panels":[{"imagePrompt":"  ","text":"only text"}]}`,
	} {
		cm := &fakeChatModel{reply: reply}
		_, err := newTestPlanner(t, cm).Plan(context.Background(), "some long story", 3)
		assert.ErrorIs(t, err, ErrNoPanels, reply)
	}
}

func TestPlan_ModelError(t *testing.T) {
	boom := errors.New("rate limited")
	cm := &fakeChatModel{err: boom}
	_, err := newTestPlanner(t, cm).Plan(context.Background(), "some long story", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoPanels)
}

func TestPlan_CountOutOfRange(t *testing.T) {
	cm := &fakeChatModel{}
	p := newTestPlanner(t, cm)
	_, err := p.Plan(context.Background(), "some long story", 0)
	assert.Error(t, err)
	_, err = p.Plan(context.Background(), "some long story", 26)
	assert.Error(t, err)
	assert.Nil(t, cm.input)
}

func TestParsePanels(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"plain", `{"panels":[{"imagePrompt":"a","text":"x"}]}`, 1, false},
		{"fenced", "Here you go:\n```json\n{\"panels\":[{\"imagePrompt\":\"a\",\"text\":\"x\"},{\"imagePrompt\":\"b\",\"text\":\"\"}]}\n```\nEnjoy!", 2, false},
		{"prose around braces", `Sure! {"panels":[{"imagePrompt":"a","text":"x"}]} Hope that helps.`, 1, false},
		{"empty visual dropped", `{"panels":[{"imagePrompt":"","text":"x"},{"imagePrompt":"b","text":"y"}]}`, 1, false},
		{"style sheet fence before json", "Style sheet:\n```\nhero: red cape\n```\nPanels:\n```json\n{\"panels\":[{\"imagePrompt\":\"a hero\",\"text\":\"hi\"}]}\n```", 1, false},
		{"two json fences", "```json\n{\"style\":\"ink\"}\n```\n```json\n{\"panels\":[{\"imagePrompt\":\"a\",\"text\":\"x\"}]}\n```", 1, false},
		{"no fence parses, braces do", "```\nnotes\n```\n{\"panels\":[{\"imagePrompt\":\"a\",\"text\":\"x\"}]}", 1, false},
		{"not json", "I cannot do that.", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			panels, err := ParsePanels(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, panels, tt.want)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "短", truncate("短", 2))
	assert.Equal(t, "龙骑...", truncate("龙骑士在城门", 2))
	assert.True(t, utf8.ValidString(truncate(strings.Repeat("龙", 300), 200)))
}

func TestMockPlanner(t *testing.T) {
	panels, err := MockPlanner{}.Plan(context.Background(), "The cat sat. The dog barked! Then they slept.", 5)
	require.NoError(t, err)
	require.Len(t, panels, 5)
	assert.Equal(t, "The cat sat", panels[0].CaptionText)
	assert.Equal(t, "The cat sat", panels[3].CaptionText)
	for _, p := range panels {
		assert.True(t, strings.HasPrefix(p.VisualDescription, "vibrant comic book art"))
	}

	_, err = MockPlanner{}.Plan(context.Background(), "...", 2)
	assert.ErrorIs(t, err, ErrNoPanels)
}
