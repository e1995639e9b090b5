package parser

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubConvertDoc(t *testing.T, fn func(io.Reader) (string, map[string]string, error)) {
	t.Helper()
	orig := convertDoc
	convertDoc = fn
	t.Cleanup(func() { convertDoc = orig })
}

func TestDocxExtractorRoutesLegacyDoc(t *testing.T) {
	legacy := append(append([]byte{}, oleMagic...), make([]byte, 504)...)

	var called bool
	stubConvertDoc(t, func(r io.Reader) (string, map[string]string, error) {
		called = true
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, legacy, b)
		return "  Jane Doe\nEngineer \n", nil, nil
	})

	text, err := DocxTextExtractor{}.ExtractText(context.Background(), legacy, "cv.doc")
	require.NoError(t, err)
	assert.True(t, called, "OLE 文件头应走 .doc 转换")
	assert.Equal(t, "Jane Doe\nEngineer", text)
}

func TestDocxExtractorLegacyDocError(t *testing.T) {
	legacy := append(append([]byte{}, oleMagic...), 0x00)
	stubConvertDoc(t, func(io.Reader) (string, map[string]string, error) {
		return "", nil, errors.New(`exec: "wvText": executable file not found in $PATH`)
	})

	_, err := DocxTextExtractor{}.ExtractText(context.Background(), legacy, "cv.doc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLegacyDoc)
	assert.Contains(t, err.Error(), "DOCX or PDF")
	assert.Contains(t, err.Error(), "cv.doc")
}

func TestDocxExtractorZipSkipsLegacyPath(t *testing.T) {
	stubConvertDoc(t, func(io.Reader) (string, map[string]string, error) {
		t.Fatal("zip 内容不应走 .doc 转换")
		return "", nil, nil
	})
	_, err := DocxTextExtractor{}.ExtractText(context.Background(), []byte("PK\x03\x04broken"), "cv.docx")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLegacyDoc)
}
