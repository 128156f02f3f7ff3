package infrastructure

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func TestLocalFileStorage_Put(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalFileStorage(root)
	require.NoError(t, err)

	path, err := s.Put(context.Background(), "certificates/7/a.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "certificates/7/a.pdf", path)

	got, err := os.ReadFile(filepath.Join(root, "certificates", "7", "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(got))
}

func TestLocalFileStorage_StaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalFileStorage(root)
	require.NoError(t, err)

	path, err := s.Put(context.Background(), "../../etc/x.txt", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "etc/x.txt", path)
	_, err = os.Stat(filepath.Join(root, "etc", "x.txt"))
	assert.NoError(t, err)
}

func TestExcelPayrollBuilder_Build(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, domain.JST)
	in := day.Add(9 * time.Hour)
	out := day.Add(18 * time.Hour)
	rows := []application.PayrollRow{
		{WorkerName: "山田 太郎", WorkDate: day, CheckIn: in, CheckOut: &out, BreakMinutes: 60, Wage: 9600},
		{WorkerName: "佐藤 花子", WorkDate: day, CheckIn: in, BreakMinutes: 60, Wage: 8000, ModificationStatus: "PENDING"},
	}

	data, err := NewExcelPayrollBuilder().Build("ひだまり苑", "2025-03", rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("2025-03", "B4")
	require.NoError(t, err)
	assert.Equal(t, "山田 太郎", v)
	v, _ = f.GetCellValue("2025-03", "D4")
	assert.Equal(t, "18:00", v)
	v, _ = f.GetCellValue("2025-03", "D5")
	assert.Equal(t, "", v)
	v, _ = f.GetCellValue("2025-03", "H6")
	assert.Equal(t, "17600", v)
}

func TestUploadTextExtractor_PlainText(t *testing.T) {
	e := NewUploadTextExtractor(zap.NewNop())
	text, err := e.ExtractText("license.TXT", []byte("介護福祉士 登録番号 123"))
	require.NoError(t, err)
	assert.Equal(t, "介護福祉士 登録番号 123", text)

	text, err = e.ExtractText("photo.jpg", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestUploadTextExtractor_BrokenPDF(t *testing.T) {
	_, err := NewUploadTextExtractor(zap.NewNop()).ExtractText("a.pdf", []byte("not a pdf"))
	assert.Error(t, err)
}

func TestDocxTemplateRenderer_MissingTemplate(t *testing.T) {
	_, err := NewDocxTemplateRenderer(filepath.Join(t.TempDir(), "none.docx"))
	assert.Error(t, err)
}
