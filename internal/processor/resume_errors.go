package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/enhancer"
	"resume-enhancer/internal/sanitizer"
	"resume-enhancer/internal/types"
)

// 流水线错误分类，全部终止于 error 状态
var (
	ErrValidation    = errors.New("file validation failed")
	ErrExtraction    = errors.New("document extraction failed")
	ErrConfiguration = errors.New("provider configuration invalid")
	ErrProvider      = errors.New("provider call failed")
	ErrResponseShape = errors.New("provider response unusable")
)

// Kind 错误类别名，对外 API 的 kind 字段
type Kind string

const (
	KindValidation    Kind = "validation"
	KindExtraction    Kind = "extraction"
	KindConfiguration Kind = "configuration"
	KindProvider      Kind = "provider"
	KindResponseShape Kind = "response_shape"
	KindCanceled      Kind = "canceled"
	KindInternal      Kind = "internal"
)

// PipelineError 带运行信息的流水线错误
type PipelineError struct {
	RunID   string
	Op      string
	BaseErr error // 上面的分类哨兵之一
	Detail  string
	Err     error // 原始错误，可为空
}

func (e *PipelineError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 运行:%s): %s", e.BaseErr, e.Op, e.RunID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 运行:%s)", e.BaseErr, e.Op, e.RunID)
}

// Unwrap 同时暴露分类哨兵与原始错误
func (e *PipelineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.BaseErr}
	}
	return []error{e.BaseErr, e.Err}
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *PipelineError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// Kind 返回错误类别
func (e *PipelineError) Kind() Kind {
	return kindOf(e.BaseErr)
}

func newPipelineError(runID, op string, base, cause error) error {
	pe := &PipelineError{RunID: runID, Op: op, BaseErr: base, Err: cause}
	if cause != nil {
		pe.Detail = cause.Error()
	}
	return pe
}

// NewValidationError 校验失败时只有提示文本
func NewValidationError(runID, detail string) error {
	return &PipelineError{RunID: runID, Op: "validate", BaseErr: ErrValidation, Detail: detail}
}

func NewExtractionError(runID string, cause error) error {
	return newPipelineError(runID, "extract", ErrExtraction, cause)
}

func NewConfigurationError(runID string, cause error) error {
	return newPipelineError(runID, "configure", ErrConfiguration, cause)
}

func NewProviderError(runID string, cause error) error {
	return newPipelineError(runID, "enhance", ErrProvider, cause)
}

func NewResponseShapeError(runID string, cause error) error {
	return newPipelineError(runID, "sanitize", ErrResponseShape, cause)
}

// classifyEnhanceError 按原始错误把增强阶段的失败归类
func classifyEnhanceError(runID string, err error) error {
	switch {
	case errors.Is(err, config.ErrMissingAPIKey),
		errors.Is(err, config.ErrUnknownProvider),
		errors.Is(err, enhancer.ErrMissingModel):
		return NewConfigurationError(runID, err)
	case errors.Is(err, sanitizer.ErrEmptyResponse),
		errors.Is(err, sanitizer.ErrMalformedJSON),
		errors.Is(err, sanitizer.ErrSchemaViolation):
		return NewResponseShapeError(runID, err)
	case errors.Is(err, types.ErrInvalidParsedDocument):
		return NewExtractionError(runID, err)
	default:
		// ProviderError、网络错误与超时都归为调用失败
		return NewProviderError(runID, err)
	}
}

func kindOf(base error) Kind {
	switch {
	case errors.Is(base, ErrValidation):
		return KindValidation
	case errors.Is(base, ErrExtraction):
		return KindExtraction
	case errors.Is(base, ErrConfiguration):
		return KindConfiguration
	case errors.Is(base, ErrProvider):
		return KindProvider
	case errors.Is(base, ErrResponseShape):
		return KindResponseShape
	default:
		return KindInternal
	}
}

// KindOf 返回任意错误的类别，取消优先
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrSuperseded) {
		return KindCanceled
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind()
	}
	return KindInternal
}

// HTTPStatus 错误类别对应的 HTTP 状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConfiguration:
		return http.StatusPreconditionFailed
	case KindExtraction:
		return http.StatusUnprocessableEntity
	case KindProvider, KindResponseShape:
		return http.StatusBadGateway
	case KindCanceled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
