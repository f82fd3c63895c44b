package planner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"comicbook/internal/model"
)

var sentenceSplit = regexp.MustCompile(`[.!?。！？]+`)

// MockPlanner 按句子切分故事，离线开发用
type MockPlanner struct{}

func (MockPlanner) Plan(ctx context.Context, story string, numPanels int) ([]model.Panel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sentences []string
	for _, s := range sentenceSplit.Split(story, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 || numPanels < 1 {
		return nil, ErrNoPanels
	}

	panels := make([]model.Panel, numPanels)
	for i := range panels {
		s := sentences[i%len(sentences)]
		panels[i] = model.Panel{
			VisualDescription: fmt.Sprintf("vibrant comic book art, cel-shaded, simple background, no text: %s", s),
			CaptionText:       s,
		}
	}
	return panels, nil
}
