package model

import (
	"fmt"
	"sort"
	"strings"
)

const (
	MinPanelCount     = 1
	MaxPanelCount     = 25
	DefaultPanelCount = 6
	MinStoryLength    = 10
)

// 字段校验提示
var (
	MsgStoryTooShort   = fmt.Sprintf("Story must be at least %d characters long.", MinStoryLength)
	MsgPanelCountRange = fmt.Sprintf("Number of panels must be between %d and %d.", MinPanelCount, MaxPanelCount)
)

// Panel 漫画分镜结构
type Panel struct {
	VisualDescription string `json:"imagePrompt"`        // 图片生成提示词（不含文字）
	CaptionText       string `json:"text"`               // 旁白或对白
	ImageReference    string `json:"imageUrl,omitempty"` // 生成的图片URL，渲染完成前为空
}

// HasImage 是否已绑定图片
func (p Panel) HasImage() bool {
	return p.ImageReference != ""
}

// WithImage 返回绑定了图片的副本
func (p Panel) WithImage(ref string) Panel {
	p.ImageReference = ref
	return p
}

// GenerationRequest 一次生成请求
type GenerationRequest struct {
	StoryText           string `json:"story" form:"story"`
	RequestedPanelCount int    `json:"numPanels" form:"numPanels"`
}

// FieldError 字段级校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors 校验错误集合
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Message)
	}
	return strings.Join(parts, "; ")
}

// ByField 按字段名返回错误信息
func (v ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// Validate 校验请求，不发起任何远程调用
func (r GenerationRequest) Validate() error {
	var errs ValidationErrors
	if len([]rune(strings.TrimSpace(r.StoryText))) < MinStoryLength {
		errs = append(errs, FieldError{Field: "story", Message: MsgStoryTooShort})
	}
	if r.RequestedPanelCount < MinPanelCount || r.RequestedPanelCount > MaxPanelCount {
		errs = append(errs, FieldError{Field: "numPanels", Message: MsgPanelCountRange})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ExportSelection 用户选中的分镜索引集合
type ExportSelection struct {
	set map[int]struct{}
}

// NewExportSelection 由索引列表创建选择集，重复索引只计一次
func NewExportSelection(indices ...int) ExportSelection {
	s := ExportSelection{set: make(map[int]struct{}, len(indices))}
	for _, i := range indices {
		s.set[i] = struct{}{}
	}
	return s
}

// AllPanels 默认选择：全部分镜
func AllPanels(n int) ExportSelection {
	s := ExportSelection{set: make(map[int]struct{}, n)}
	for i := 0; i < n; i++ {
		s.set[i] = struct{}{}
	}
	return s
}

func (s *ExportSelection) ensure() {
	if s.set == nil {
		s.set = make(map[int]struct{})
	}
}

func (s *ExportSelection) Select(i int) {
	s.ensure()
	s.set[i] = struct{}{}
}

func (s *ExportSelection) Deselect(i int) {
	delete(s.set, i)
}

// Toggle 切换选中状态
func (s *ExportSelection) Toggle(i int) {
	if s.Contains(i) {
		s.Deselect(i)
		return
	}
	s.Select(i)
}

func (s ExportSelection) Contains(i int) bool {
	_, ok := s.set[i]
	return ok
}

func (s ExportSelection) Len() int {
	return len(s.set)
}

func (s ExportSelection) IsEmpty() bool {
	return len(s.set) == 0
}

// Indices 升序返回索引，与点击顺序无关
func (s ExportSelection) Indices() []int {
	out := make([]int, 0, len(s.set))
	for i := range s.set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Clamp 去掉不在 [0,n) 内的索引
func (s ExportSelection) Clamp(n int) ExportSelection {
	out := ExportSelection{set: make(map[int]struct{}, len(s.set))}
	for i := range s.set {
		if i >= 0 && i < n {
			out.set[i] = struct{}{}
		}
	}
	return out
}

// Equal 判断两个选择集是否相同
func (s ExportSelection) Equal(o ExportSelection) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i := range s.set {
		if !o.Contains(i) {
			return false
		}
	}
	return true
}
