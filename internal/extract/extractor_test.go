package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
)

type fakeRunner struct {
	out  string
	err  error
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.args = append([]string{name}, args...)
	if f.err != nil {
		return nil, []byte("Syntax Error: bad pdf"), f.err
	}
	return []byte(f.out), nil, nil
}

func TestExtractText_PlainText(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	text, err := e.ExtractText(context.Background(), "notes.MD", []byte("\ufeffFixed sink\r\n\r\n\r\n\r\nBought   pipe\t\t$5  \n"))
	require.NoError(t, err)
	assert.Equal(t, "Fixed sink\n\nBought pipe $5", text)
}

func TestExtractText_InputErrors(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	ctx := context.Background()

	_, err := e.ExtractText(ctx, "photo.png", []byte("x"))
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = e.ExtractText(ctx, "notes.txt", nil)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = e.ExtractText(ctx, "notes.txt", []byte("  \n\n "))
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestExtractText_PDFUsesPdftotext(t *testing.T) {
	r := &fakeRunner{out: "Page one\fPage two\n"}
	e := NewExtractor(Config{Pdftotext: "/usr/bin/pdftotext"}, nil).WithRunner(r)

	text, err := e.ExtractText(context.Background(), "job.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Page one\n\nPage two", text)
	require.Len(t, r.args, 9)
	assert.Equal(t, "/usr/bin/pdftotext", r.args[0])
	assert.Equal(t, "-", r.args[8])
}

func TestExtractText_PDFFailureIsInputError(t *testing.T) {
	e := NewExtractor(Config{}, nil).WithRunner(&fakeRunner{err: errors.New("exit status 1")})
	_, err := e.ExtractText(context.Background(), "job.pdf", []byte("garbage"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestExtractText_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Date"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Work"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Mon"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "Replaced valve, 2 hours"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text, err := NewExtractor(Config{}, nil).ExtractText(context.Background(), "log.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Date Work\nMon Replaced valve, 2 hours", text)
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.txt")
	require.NoError(t, os.WriteFile(path, []byte("Patched drywall"), 0o600))

	text, err := NewExtractor(Config{}, nil).ExtractFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Patched drywall", text)
}
