package parser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter struct {
	n   int
	err error
}

func (c fixedCounter) CountPages([]byte) (int, error) { return c.n, c.err }

// fakePdftoppm 模拟 pdftoppm：按 -l 参数写出补零命名的 PNG 文件
type fakePdftoppm struct {
	args    []string
	written int
	fail    bool
}

func (f *fakePdftoppm) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	f.args = args
	if f.fail {
		return nil, []byte("Syntax Error: broken xref"), errors.New("exit status 1")
	}
	last := 0
	for i, a := range args {
		if a == "-l" {
			fmt.Sscanf(args[i+1], "%d", &last)
		}
	}
	prefix := args[len(args)-1]
	// 按逆序写入，验证结果按页码排序
	for p := last; p >= 1; p-- {
		name := fmt.Sprintf("%s-%02d.png", prefix, p)
		if err := os.WriteFile(name, []byte(fmt.Sprintf("png-page-%d", p)), 0o600); err != nil {
			return nil, nil, err
		}
		f.written++
	}
	return nil, nil, nil
}

func TestRasterizeCapsPagesAndKeepsOrder(t *testing.T) {
	runner := &fakePdftoppm{}
	z := NewRasterizer(WithRunner(runner), WithPageCounter(fixedCounter{n: 12}), WithTempDir(t.TempDir()))

	pages, err := z.Rasterize(context.Background(), []byte("%PDF-1.7"), 1.5, 10)
	require.NoError(t, err)
	require.Len(t, pages, 10)
	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, fmt.Sprintf("png-page-%d", i+1), string(p.PNG))
	}
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-page-1")), pages[0].Base64())
	assert.Equal(t, "data:image/png;base64,"+pages[0].Base64(), pages[0].DataURL())

	assert.Equal(t, []string{"-r", "108", "-f", "1", "-l", "10", "-png"}, runner.args[:7])
}

func TestRasterizeFewerPagesThanCap(t *testing.T) {
	runner := &fakePdftoppm{}
	z := NewRasterizer(WithRunner(runner), WithPageCounter(fixedCounter{n: 2}), WithTempDir(t.TempDir()))

	pages, err := z.Rasterize(context.Background(), []byte("%PDF"), 2.0, 4)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Contains(t, runner.args, "144")
}

func TestRasterizeDeterministic(t *testing.T) {
	z := NewRasterizer(WithRunner(&fakePdftoppm{}), WithPageCounter(fixedCounter{n: 3}), WithTempDir(t.TempDir()))
	a, err := z.Rasterize(context.Background(), []byte("%PDF"), 2.0, 3)
	require.NoError(t, err)
	b, err := z.Rasterize(context.Background(), []byte("%PDF"), 2.0, 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRasterizeErrors(t *testing.T) {
	ctx := context.Background()

	z := NewRasterizer(WithRunner(&fakePdftoppm{}), WithPageCounter(fixedCounter{n: 0}))
	_, err := z.Rasterize(ctx, []byte("%PDF"), 2, 3)
	assert.ErrorIs(t, err, ErrNoPages)

	z = NewRasterizer(WithRunner(&fakePdftoppm{}), WithPageCounter(fixedCounter{err: errors.New("bad xref")}))
	_, err = z.Rasterize(ctx, []byte("%PDF"), 2, 3)
	assert.ErrorContains(t, err, "bad xref")

	z = NewRasterizer(WithRunner(&fakePdftoppm{fail: true}), WithPageCounter(fixedCounter{n: 1}), WithTempDir(t.TempDir()))
	_, err = z.Rasterize(ctx, []byte("%PDF"), 2, 3)
	assert.ErrorContains(t, err, "broken xref")
}

func TestLedongPageCounterRejectsGarbage(t *testing.T) {
	_, err := LedongPageCounter{}.CountPages([]byte("not a pdf at all"))
	assert.Error(t, err)
}
