package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 定义错误类型，便于分类和过滤
type ErrorType string

const (
	// ErrorTypeHTTP HTTP错误
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeValidation 文件校验错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeExtraction 文档提取错误
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeConfiguration 提供方配置错误
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeProvider 模型提供方返回错误或不可达
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeResponseShape 模型返回内容无法解析
	ErrorTypeResponseShape ErrorType = "response_shape"
	// ErrorTypeStorage 状态或快照存储错误
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeRender 渲染错误
	ErrorTypeRender ErrorType = "render"
	// ErrorTypeInternal 内部错误
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeCanceled 被新的任务取消
	ErrorTypeCanceled ErrorType = "canceled"
)

// RecordError 记录错误，添加统一的错误类型和详情
func RecordError(span trace.Span, err error, errorType ErrorType) {
	RecordErrorWithInfo(span, err, errorType)
}

// RecordErrorWithInfo 记录错误并添加额外信息
func RecordErrorWithInfo(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}
	span.SetStatus(codes.Error, err.Error())
}

// RecordHTTPError 专门记录HTTP错误，按状态码区分客户端与服务端错误
func RecordHTTPError(span trace.Span, err error, statusCode int) {
	if span == nil || err == nil {
		return
	}

	var errorCategory string
	switch {
	case statusCode >= 400 && statusCode < 500:
		errorCategory = "client_error"
	case statusCode >= 500:
		errorCategory = "server_error"
	default:
		errorCategory = "unknown"
	}

	RecordErrorWithInfo(span, err, ErrorTypeHTTP,
		attribute.Int("http.status_code", statusCode),
		attribute.String("error.category", errorCategory),
	)
}
