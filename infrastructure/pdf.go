package infrastructure

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/creator"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

// maxPlainTextBytes caps raw text kept from non-PDF uploads.
const maxPlainTextBytes = 10000

// SetupUnidoc registers the metered license key. unipdf refuses to write documents without one.
func SetupUnidoc(key string, logger *zap.Logger) {
	if key == "" {
		logger.Warn("UNIDOC_LICENSE_API_KEY is not set; PDF generation will fail")
		return
	}
	if err := license.SetMeteredKey(key); err != nil {
		logger.Error("failed to set unidoc license", zap.Error(err))
	}
}

// LaborPDFRenderer lays out the working-conditions notice as a one-page PDF.
type LaborPDFRenderer struct {
	fontPath string
}

// NewLaborPDFRenderer uses the TTF at fontPath when given. Helvetica has no Japanese glyphs.
func NewLaborPDFRenderer(fontPath string) *LaborPDFRenderer {
	return &LaborPDFRenderer{fontPath: fontPath}
}

func (r *LaborPDFRenderer) font() (*model.PdfFont, error) {
	if r.fontPath != "" {
		return model.NewCompositePdfFontFromTTFFile(r.fontPath)
	}
	return model.NewStandard14Font(model.HelveticaName)
}

func (r *LaborPDFRenderer) Render(doc domain.LaborDocument) ([]byte, error) {
	font, err := r.font()
	if err != nil {
		return nil, fmt.Errorf("load pdf font: %w", err)
	}
	fields := doc.Fields()

	c := creator.New()
	c.SetPageMargins(50, 50, 50, 50)
	c.NewPage()

	text := func(s string, size float64) *creator.Paragraph {
		p := c.NewParagraph(s)
		p.SetFont(font)
		p.SetFontSize(size)
		return p
	}

	title := text("労働条件通知書", 18)
	title.SetTextAlignment(creator.TextAlignmentCenter)
	title.SetMargins(0, 0, 0, 20)
	if err := c.Draw(title); err != nil {
		return nil, err
	}
	head := text(fmt.Sprintf("%s 殿\n交付日 %s", fields["worker_name"], fields["issued_at"]), 11)
	head.SetMargins(0, 0, 0, 12)
	if err := c.Draw(head); err != nil {
		return nil, err
	}

	table := c.NewTable(2)
	if err := table.SetColumnWidths(0.3, 0.7); err != nil {
		return nil, err
	}
	for _, row := range laborPDFRows(fields) {
		for _, v := range row {
			cell := table.NewCell()
			cell.SetBorder(creator.CellBorderSideAll, creator.CellBorderStyleSingle, 0.5)
			cell.SetIndent(4)
			p := text(v, 10)
			p.SetMargins(0, 0, 3, 3)
			if err := cell.SetContent(p); err != nil {
				return nil, err
			}
		}
	}
	if err := c.Draw(table); err != nil {
		return nil, err
	}

	foot := text(fmt.Sprintf("%s\n%s", fields["corporation_name"], fields["facility_name"]), 10)
	foot.SetTextAlignment(creator.TextAlignmentRight)
	foot.SetMargins(0, 0, 20, 0)
	if err := c.Draw(foot); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func laborPDFRows(f map[string]string) [][2]string {
	return [][2]string{
		{"就業場所", f["facility_name"] + "\n" + f["facility_address"]},
		{"業務内容", f["job_title"] + "\n" + f["job_overview"]},
		{"就業日", f["work_date"]},
		{"始業・終業", f["start_time"] + " 〜 " + f["end_time"]},
		{"休憩時間", f["break_minutes"] + "分"},
		{"賃金（時給）", f["hourly_wage"] + "円"},
		{"交通費", f["transportation_fee"] + "円"},
		{"日給合計", f["daily_wage"] + "円"},
	}
}

// UploadTextExtractor pulls reviewable text out of uploaded certificates.
type UploadTextExtractor struct {
	logger *zap.Logger
}

func NewUploadTextExtractor(logger *zap.Logger) *UploadTextExtractor {
	return &UploadTextExtractor{logger: logger.Named("extract")}
}

func (e *UploadTextExtractor) ExtractText(fileName string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return e.extractPDF(data)
	default:
		if len(data) > maxPlainTextBytes {
			data = data[:maxPlainTextBytes]
		}
		return strings.ToValidUTF8(string(data), ""), nil
	}
}

func (e *UploadTextExtractor) extractPDF(data []byte) (string, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}
	if numPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			e.logger.Debug("skip page", zap.Int("page", i), zap.Error(err))
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			e.logger.Debug("skip page", zap.Int("page", i), zap.Error(err))
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil || pageText == "" {
			continue
		}
		fmt.Fprintf(&sb, "--- Page %d ---\n%s\n\n", i, pageText)
	}
	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", fmt.Errorf("no text could be extracted from any page of the PDF")
	}
	return result, nil
}
