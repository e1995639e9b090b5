package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"resume-enhancer/internal/constants"
)

// ChromedpPrinter 用无头 Chrome 把 HTML 打印为 A4 PDF
type ChromedpPrinter struct {
	execPath string
	timeout  time.Duration
}

// NewChromedpPrinter execPath 为空时由 chromedp 自行查找浏览器
func NewChromedpPrinter(execPath string, timeout time.Duration) *ChromedpPrinter {
	if timeout <= 0 {
		timeout = constants.DefaultRenderTimeout
	}
	return &ChromedpPrinter{execPath: execPath, timeout: timeout}
}

// PrintPDF singlePage 为 true 时只输出第一页
func (p *ChromedpPrinter) PrintPDF(ctx context.Context, html []byte, singlePage bool) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p.execPath != "" {
		opts = append(opts, chromedp.ExecPath(p.execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()
	cctx, cancelTimeout := context.WithTimeout(cctx, p.timeout)
	defer cancelTimeout()

	tmpDir, err := os.MkdirTemp("", "resume-render-")
	if err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	htmlPath := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return nil, fmt.Errorf("写入 HTML 失败: %w", err)
	}

	var pdf []byte
	err = chromedp.Run(cctx,
		chromedp.Navigate("file://"+filepath.ToSlash(htmlPath)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// A4: 210mm x 297mm
			params := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true)
			if singlePage {
				params = params.WithPageRanges("1")
			}
			var err error
			pdf, _, err = params.Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome 打印 PDF 失败: %w", err)
	}
	return pdf, nil
}
