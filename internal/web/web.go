package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"comicbook/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	IndexTemplate = "index.html"
	CardTemplate  = "card.html"
)

// PageData 主页面数据
type PageData struct {
	Theme     Theme
	Story     string
	NumPanels int
	MinPanels int
	MaxPanels int
	ComicID   string
	Panels    []model.Panel
	Error     string
	Fields    map[string]string
}

type cardData struct {
	Theme Theme
	Index int
	Panel model.Panel
	Width int
}

// Renderer 持有解析好的模板和当前主题
type Renderer struct {
	tmpl      *template.Template
	theme     Theme
	cardWidth int
}

// New 解析内嵌模板；theme 为空时使用 light
func New(themeName string, cardWidth int) (*Renderer, error) {
	theme, err := LookupTheme(themeName)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"inc":    func(i int) int { return i + 1 },
		"imgsrc": ImageSrc,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, theme: theme, cardWidth: cardWidth}, nil
}

// Templates 供 gin SetHTMLTemplate 使用
func (r *Renderer) Templates() *template.Template {
	return r.tmpl
}

// Theme 当前主题
func (r *Renderer) Theme() Theme {
	return r.theme
}

// NewPage 带默认值的页面数据
func (r *Renderer) NewPage() PageData {
	return PageData{
		Theme:     r.theme,
		NumPanels: model.DefaultPanelCount,
		MinPanels: model.MinPanelCount,
		MaxPanels: model.MaxPanelCount,
	}
}

// Page 渲染主页面
func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.tmpl.ExecuteTemplate(w, IndexTemplate, data)
}

// RenderCard 渲染单个分镜卡片的独立页面，用于截图导出
func (r *Renderer) RenderCard(index int, panel model.Panel) (string, error) {
	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, CardTemplate, cardData{
		Theme: r.theme,
		Index: index,
		Panel: panel,
		Width: r.cardWidth,
	})
	if err != nil {
		return "", fmt.Errorf("render card %d: %w", index, err)
	}
	return buf.String(), nil
}

// ImageSrc 只放行 http(s) 和 data:image 地址
func ImageSrc(ref string) template.URL {
	switch {
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "data:image/"):
		return template.URL(ref)
	default:
		return "#"
	}
}
