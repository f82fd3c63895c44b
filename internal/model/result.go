package model

import (
	"encoding/json"
	"errors"
)

// FailureKind 失败类型
type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureUpstream   FailureKind = "upstream"
	FailureNoPanels   FailureKind = "no_panels"
)

// Failure 失败结果
type Failure struct {
	Kind    FailureKind       `json:"kind"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"` // 仅 validation 使用
}

// GenerationResult 生成结果，Ok 与 Err 互斥。
// 只能通过 Ok / Err / ErrFields 构造。
type GenerationResult struct {
	panels  []Panel
	failure *Failure
}

// Ok 成功结果
func Ok(panels []Panel) GenerationResult {
	cp := make([]Panel, len(panels))
	copy(cp, panels)
	return GenerationResult{panels: cp}
}

// Err 失败结果
func Err(kind FailureKind, message string) GenerationResult {
	return GenerationResult{failure: &Failure{Kind: kind, Message: message}}
}

// ErrFields 带字段错误的校验失败结果
func ErrFields(message string, fields map[string]string) GenerationResult {
	return GenerationResult{failure: &Failure{Kind: FailureValidation, Message: message, Fields: fields}}
}

func (r GenerationResult) IsOk() bool {
	return r.failure == nil
}

// Panels 成功时返回分镜副本
func (r GenerationResult) Panels() ([]Panel, bool) {
	if r.failure != nil {
		return nil, false
	}
	cp := make([]Panel, len(r.panels))
	copy(cp, r.panels)
	return cp, true
}

// Failure 失败时返回失败信息
func (r GenerationResult) Failure() (Failure, bool) {
	if r.failure == nil {
		return Failure{}, false
	}
	return *r.failure, true
}

type resultJSON struct {
	Panels []Panel           `json:"panels,omitempty"`
	Error  string            `json:"error,omitempty"`
	Kind   FailureKind       `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (r GenerationResult) MarshalJSON() ([]byte, error) {
	if r.failure != nil {
		return json.Marshal(resultJSON{Error: r.failure.Message, Kind: r.failure.Kind, Fields: r.failure.Fields})
	}
	panels := r.panels
	if panels == nil {
		panels = []Panel{}
	}
	return json.Marshal(struct {
		Panels []Panel `json:"panels"`
	}{Panels: panels})
}

func (r *GenerationResult) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Error != "" && raw.Panels != nil {
		return errors.New("generation result has both panels and error")
	}
	if raw.Error != "" {
		kind := raw.Kind
		if kind == "" {
			kind = FailureUpstream
		}
		*r = GenerationResult{failure: &Failure{Kind: kind, Message: raw.Error, Fields: raw.Fields}}
		return nil
	}
	*r = Ok(raw.Panels)
	return nil
}
