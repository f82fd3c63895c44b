package replicate

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingToken = errors.New("REPLICATE_API_TOKEN is not set")
	ErrNoOutput     = errors.New("prediction did not return an image")
	ErrTimedOut     = errors.New("prediction did not finish in time")
)

// APIError 非 2xx 响应
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Body)
}

// PredictionError 任务进入 failed/canceled 终态，Detail 为上游原始 error 字段
type PredictionError struct {
	ID     string
	Status string
	Detail json.RawMessage
}

func (e *PredictionError) Error() string {
	detail := string(e.Detail)
	if detail == "" {
		detail = "null"
	}
	return fmt.Sprintf("prediction %s %s: %s", e.ID, e.Status, detail)
}
