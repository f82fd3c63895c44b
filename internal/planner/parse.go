package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"comicbook/internal/model"
)

var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

type planResponse struct {
	Panels []struct {
		ImagePrompt string `json:"imagePrompt"`
		Text        string `json:"text"`
	} `json:"panels"`
}

// ParsePanels 解析模型输出，兼容多个代码块和前后多余文字。
// 依次尝试每个代码块，都失败时退回到最外层大括号。visual 为空的分镜会被丢弃。
func ParsePanels(raw string) ([]model.Panel, error) {
	raw = strings.TrimSpace(raw)

	resp, ok := parseFencedBlocks(raw)
	if !ok {
		rawJSON := raw
		first := strings.Index(raw, "{")
		last := strings.LastIndex(raw, "}")
		if first != -1 && last > first {
			rawJSON = raw[first : last+1]
		}
		if err := json.Unmarshal([]byte(rawJSON), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse planner response (excerpt: %q): %w", truncate(raw, 200), err)
		}
	}

	panels := make([]model.Panel, 0, len(resp.Panels))
	for _, p := range resp.Panels {
		visual := strings.TrimSpace(p.ImagePrompt)
		if visual == "" {
			continue
		}
		panels = append(panels, model.Panel{
			VisualDescription: visual,
			CaptionText:       strings.TrimSpace(p.Text),
		})
	}
	return panels, nil
}

// parseFencedBlocks 返回第一个包含 panels 的代码块
func parseFencedBlocks(raw string) (planResponse, bool) {
	for _, m := range fencedBlockRegex.FindAllStringSubmatch(raw, -1) {
		var resp planResponse
		if err := json.Unmarshal([]byte(m[1]), &resp); err == nil && resp.Panels != nil {
			return resp, true
		}
	}
	return planResponse{}, false
}

// truncate 按字符截断，避免切断多字节字符
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
