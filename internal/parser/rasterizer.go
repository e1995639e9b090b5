package parser

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"resume-enhancer/internal/constants"
	"resume-enhancer/internal/logger"
)

// ErrNoPages PDF 没有可渲染的页面
var ErrNoPages = errors.New("pdf has no renderable pages")

// PageImage 一页的 PNG 渲染结果，Number 从 1 开始
type PageImage struct {
	Number  int
	PNG     []byte
	encoded string
}

// Base64 不带前缀的 base64
func (p PageImage) Base64() string {
	if p.encoded != "" {
		return p.encoded
	}
	return base64.StdEncoding.EncodeToString(p.PNG)
}

// DataURL 浏览器可直接显示的 data URL
func (p PageImage) DataURL() string {
	return "data:image/png;base64," + p.Base64()
}

// PageCounter 读取 PDF 页数
type PageCounter interface {
	CountPages(data []byte) (int, error)
}

// LedongPageCounter 基于 ledongthuc/pdf 读取页数
type LedongPageCounter struct{}

// CountPages 只解析交叉引用表与页树，不渲染
func (LedongPageCounter) CountPages(data []byte) (n int, err error) {
	// 损坏的 PDF 可能让解析库 panic
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("读取PDF页数失败: %v", r)
		}
	}()
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("读取PDF页数失败: %w", err)
	}
	return r.NumPage(), nil
}

// Rasterizer 调用 pdftoppm 把 PDF 前若干页渲染为 PNG
type Rasterizer struct {
	runner  Runner
	counter PageCounter
	bin     string
	tempDir string
	timeout time.Duration
	log     zerolog.Logger
}

// RasterizerOption 光栅化器选项
type RasterizerOption func(*Rasterizer)

// WithRunner 替换命令执行器
func WithRunner(r Runner) RasterizerOption {
	return func(z *Rasterizer) { z.runner = r }
}

// WithPageCounter 替换页数读取实现
func WithPageCounter(c PageCounter) RasterizerOption {
	return func(z *Rasterizer) { z.counter = c }
}

// WithPdftoppm pdftoppm 可执行文件路径
func WithPdftoppm(path string) RasterizerOption {
	return func(z *Rasterizer) {
		if path != "" {
			z.bin = path
		}
	}
}

// WithTempDir 临时文件目录，空字符串使用系统默认
func WithTempDir(dir string) RasterizerOption {
	return func(z *Rasterizer) { z.tempDir = dir }
}

// WithRasterTimeout 单次 pdftoppm 调用的超时，0 表示只受调用方 ctx 约束
func WithRasterTimeout(d time.Duration) RasterizerOption {
	return func(z *Rasterizer) { z.timeout = d }
}

// NewRasterizer 默认使用系统 pdftoppm 与 ledongthuc 页数读取
func NewRasterizer(opts ...RasterizerOption) *Rasterizer {
	l := logger.With().Str("component", "rasterizer").Logger()
	z := &Rasterizer{
		runner:  ExecRunner{Log: l},
		counter: LedongPageCounter{},
		bin:     "pdftoppm",
		log:     l,
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Rasterize 按文档顺序返回 min(maxPages, 页数) 张图片。
// maxPages <= 0 表示不限制。同一文件与 scale 的输出是确定的
func (z *Rasterizer) Rasterize(ctx context.Context, data []byte, scale float64, maxPages int) ([]PageImage, error) {
	total, err := z.counter.CountPages(data)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, ErrNoPages
	}
	count := total
	if maxPages > 0 && maxPages < total {
		count = maxPages
	}
	if scale <= 0 {
		scale = 2.0
	}
	dpi := int(math.Round(scale * constants.PointsPerInch))

	tmpDir, err := os.MkdirTemp(z.tempDir, "raster-*")
	if err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			z.log.Warn().Err(err).Str("dir", tmpDir).Msg("清理临时目录失败")
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("写入临时PDF失败: %w", err)
	}
	prefix := filepath.Join(tmpDir, "page")

	runCtx := ctx
	if z.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, z.timeout)
		defer cancel()
	}
	// pdftoppm -r <dpi> -f 1 -l <n> -png <in.pdf> <tmp/page>
	_, errb, err := z.runner.Run(runCtx, z.bin,
		"-r", strconv.Itoa(dpi),
		"-f", "1",
		"-l", strconv.Itoa(count),
		"-png", in, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm 渲染失败: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	files, err := collectPages(prefix)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: pdftoppm produced no images", ErrNoPages)
	}
	if len(files) > count {
		files = files[:count]
	}

	pages := make([]PageImage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := os.ReadFile(f.path)
			if err != nil {
				return fmt.Errorf("读取第 %d 页图片失败: %w", f.number, err)
			}
			pages[i] = PageImage{Number: f.number, PNG: b, encoded: base64.StdEncoding.EncodeToString(b)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	z.log.Debug().Int("pages", len(pages)).Int("total", total).Int("dpi", dpi).Msg("PDF光栅化完成")
	return pages, nil
}

type pageFile struct {
	number int
	path   string
}

// collectPages pdftoppm 会按总页数补零（page-01.png），按数字而不是字符串排序
func collectPages(prefix string) ([]pageFile, error) {
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	out := make([]pageFile, 0, len(matches))
	for _, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), filepath.Base(prefix)+"-"), ".png")
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		out = append(out, pageFile{number: n, path: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out, nil
}
