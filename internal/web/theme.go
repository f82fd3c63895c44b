package web

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
)

// Theme 一组 CSS 变量
type Theme struct {
	Name       string
	Background template.CSS
	Surface    template.CSS
	Text       template.CSS
	Muted      template.CSS
	Accent     template.CSS
	Border     template.CSS
	Danger     template.CSS
	Font       template.CSS
}

var themes = map[string]Theme{
	"light": {
		Name:       "light",
		Background: "#f5f5f4",
		Surface:    "#ffffff",
		Text:       "#1c1917",
		Muted:      "#78716c",
		Accent:     "#2563eb",
		Border:     "#e7e5e4",
		Danger:     "#dc2626",
		Font:       "system-ui, -apple-system, 'Segoe UI', sans-serif",
	},
	"dark": {
		Name:       "dark",
		Background: "#0c0a09",
		Surface:    "#1c1917",
		Text:       "#fafaf9",
		Muted:      "#a8a29e",
		Accent:     "#60a5fa",
		Border:     "#44403c",
		Danger:     "#f87171",
		Font:       "system-ui, -apple-system, 'Segoe UI', sans-serif",
	},
	"comic": {
		Name:       "comic",
		Background: "#fff7d6",
		Surface:    "#ffffff",
		Text:       "#111111",
		Muted:      "#4b5563",
		Accent:     "#e11d48",
		Border:     "#111111",
		Danger:     "#b91c1c",
		Font:       "'Comic Neue', 'Comic Sans MS', cursive",
	},
}

// LookupTheme 按名称查找主题，空名称返回 light
func LookupTheme(name string) (Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "light"
	}
	t, ok := themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(ThemeNames(), ", "))
	}
	return t, nil
}

// ThemeNames 可用主题名
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
