package processor // 定义了简历处理流水线与其状态机

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-enhancer/internal/capability"
	"resume-enhancer/internal/config"
	"resume-enhancer/internal/logger"
	"resume-enhancer/internal/tracing"
	"resume-enhancer/internal/types"
	"resume-enhancer/internal/validator"
)

var tracer = otel.Tracer("resume-enhancer/processor")

// ErrSuperseded 运行被更新的上传取代，结果已丢弃
var ErrSuperseded = errors.New("run superseded by a newer upload")

// Status 当前运行的快照
type Status struct {
	RunID      string                     `json:"runId,omitempty"`
	State      State                      `json:"state"`
	FileName   string                     `json:"fileName,omitempty"`
	FileType   types.FileType             `json:"fileType,omitempty"`
	Provider   config.Provider            `json:"provider,omitempty"`
	Model      string                     `json:"model,omitempty"`
	VisionMode bool                       `json:"visionMode"`
	JobTitle   string                     `json:"jobTitle,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Kind       Kind                       `json:"kind,omitempty"`
	StartedAt  *time.Time                 `json:"startedAt,omitempty"`
	FinishedAt *time.Time                 `json:"finishedAt,omitempty"`
	Result     *types.CanonicalResumeData `json:"result,omitempty"`
}

// ResumeProcessor 串联校验、提取与增强。同一时刻只有一次运行有效
type ResumeProcessor struct {
	extractor DocumentExtractor
	enhancer  ResumeEnhancer
	state     StateLoader

	now      func() time.Time
	newRunID func() string

	mu     sync.Mutex
	m      machine
	status Status
	cancel context.CancelFunc
}

// Option 处理器选项
type Option func(*ResumeProcessor)

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(p *ResumeProcessor) { p.now = now }
}

// WithRunIDGenerator 替换运行 ID 生成方式
func WithRunIDGenerator(gen func() string) Option {
	return func(p *ResumeProcessor) { p.newRunID = gen }
}

// NewResumeProcessor 创建处理器，初始状态为 idle
func NewResumeProcessor(extractor DocumentExtractor, enhancer ResumeEnhancer, state StateLoader, opts ...Option) *ResumeProcessor {
	p := &ResumeProcessor{
		extractor: extractor,
		enhancer:  enhancer,
		state:     state,
		now:       time.Now,
		newRunID:  newRunID,
		m:         newMachine(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.status = Status{State: StateIdle}
	return p
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	return id.String()
}

// Status 返回当前状态的副本
func (p *ResumeProcessor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Cancel 取消正在进行的运行，状态保持不变直到该运行退出
func (p *ResumeProcessor) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Process 处理一次上传。新的调用会取消尚未结束的旧运行，旧运行返回 ErrSuperseded。
// jobTitle 为空时使用已保存的职位名称。
func (p *ResumeProcessor) Process(ctx context.Context, file *types.UploadedFile, jobTitle string) (Status, error) {
	runID := p.newRunID()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.begin(runID, file, cancel)

	log := logger.With().Str("run_id", runID).Str("file", file.Filename).Logger()
	runCtx = logger.WithContext(runCtx, log)

	runCtx, span := tracer.Start(runCtx, "processor.Process", trace.WithAttributes(
		attribute.String("resume.run_id", runID),
		attribute.String("resume.filename", tracing.SafeAttributeValue("filename", file.Filename, 120)),
		attribute.Int64("resume.size", fileSize(file)),
	))
	defer span.End()

	fail := func(err error) (Status, error) {
		kind := KindOf(err)
		tracing.RecordError(span, err, tracing.ErrorType(kind))
		if ferr := p.fail(runID, err); ferr != nil {
			log.Info().Err(err).Msg("运行已被取代，丢弃结果")
			return p.Status(), ferr
		}
		log.Warn().Err(err).Str("kind", string(kind)).Msg("简历处理失败")
		return p.Status(), err
	}

	// parsing
	res := validator.Validate(validator.FileMeta{
		Size:         fileSize(file),
		DeclaredType: file.DeclaredType,
		Filename:     file.Filename,
	})
	if !res.Valid {
		return fail(NewValidationError(runID, res.Error))
	}

	cfg, err := p.state.LoadProviderConfig(runCtx)
	if err != nil {
		return fail(NewConfigurationError(runID, err))
	}
	if prov, ok := config.ParseProvider(string(cfg.Provider)); ok {
		cfg.Provider = prov
	}
	jobTitle = strings.TrimSpace(jobTitle)
	if jobTitle == "" {
		if saved, err := p.state.LoadJobTitle(runCtx); err != nil {
			log.Warn().Err(err).Msg("读取已保存的职位名称失败")
		} else {
			jobTitle = saved
		}
	}

	model := p.enhancer.ResolveModel(cfg)
	verdict := capability.Classify(string(cfg.Provider), model)
	p.update(runID, func(s *Status) {
		s.FileType = res.FileType
		s.Provider = cfg.Provider
		s.Model = model
		s.JobTitle = jobTitle
	})
	span.SetAttributes(
		attribute.String("resume.file_type", string(res.FileType)),
		attribute.String("llm.provider", string(cfg.Provider)),
		attribute.Bool("llm.supports_vision", verdict.SupportsVision),
	)

	doc, err := p.extractor.Extract(runCtx, file, res.FileType, verdict)
	if err != nil {
		return fail(NewExtractionError(runID, err))
	}
	log.Info().
		Bool("vision", doc.IsVisionMode).
		Int("pages", len(doc.Images)).
		Int("chars", len(doc.Text)).
		Msg("文档提取完成")

	// enhancing
	if err := p.advance(runID, StateEnhancing, func(s *Status) { s.VisionMode = doc.IsVisionMode }); err != nil {
		return p.Status(), err
	}

	data, err := p.enhancer.Enhance(runCtx, doc, cfg, jobTitle)
	if err != nil {
		return fail(classifyEnhanceError(runID, err))
	}

	// completed
	if err := p.advance(runID, StateCompleted, func(s *Status) { s.Result = data }); err != nil {
		return p.Status(), err
	}
	log.Info().Int("experience", len(data.Experience)).Msg("简历处理完成")
	return p.Status(), nil
}

func fileSize(file *types.UploadedFile) int64 {
	if file.Size > 0 {
		return file.Size
	}
	return int64(len(file.Data))
}

// begin 取消旧运行并从 parsing 重新开始
func (p *ResumeProcessor) begin(runID string, file *types.UploadedFile, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.m.restart(runID)
	started := p.now()
	p.status = Status{
		RunID:     runID,
		State:     p.m.state,
		FileName:  file.Filename,
		StartedAt: &started,
	}
}

func (p *ResumeProcessor) update(runID string, fn func(*Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m.runID == runID {
		fn(&p.status)
	}
}

// advance 只对当前运行生效
func (p *ResumeProcessor) advance(runID string, to State, fn func(*Status)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m.runID != runID {
		return ErrSuperseded
	}
	if err := p.m.transition(to); err != nil {
		return err
	}
	p.status.State = to
	if fn != nil {
		fn(&p.status)
	}
	if to.IsTerminal() {
		p.finish()
	}
	return nil
}

func (p *ResumeProcessor) fail(runID string, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m.runID != runID {
		return ErrSuperseded
	}
	if terr := p.m.fail(err); terr != nil {
		return terr
	}
	p.status.State = StateError
	p.status.Error = err.Error()
	p.status.Kind = KindOf(err)
	p.finish()
	return nil
}

// finish 调用方持有锁
func (p *ResumeProcessor) finish() {
	finished := p.now()
	p.status.FinishedAt = &finished
	p.cancel = nil
}
