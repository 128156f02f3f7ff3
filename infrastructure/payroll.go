package infrastructure

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"shiftmatch/application"
	"shiftmatch/domain"
)

var payrollHeaders = []string{
	"勤務日", "氏名", "出勤打刻", "退勤打刻", "実績開始", "実績終了", "休憩(分)", "支払額(円)", "修正申請",
}

var payrollWidths = []float64{12, 18, 10, 10, 10, 10, 10, 12, 12}

// ExcelPayrollBuilder writes the facility monthly attendance workbook.
type ExcelPayrollBuilder struct{}

func NewExcelPayrollBuilder() *ExcelPayrollBuilder { return &ExcelPayrollBuilder{} }

func (b *ExcelPayrollBuilder) Build(facilityName, month string, rows []application.PayrollRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := month
	if sheet == "" {
		sheet = "勤怠"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetCellValue(sheet, "A1", fmt.Sprintf("%s %s 勤怠・支払一覧", facilityName, month)); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	const headerRow = 3
	for i, h := range payrollHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, payrollWidths[i]); err != nil {
			return nil, err
		}
	}

	total := 0
	for i, r := range rows {
		values := []any{
			domain.JSTDateString(r.WorkDate),
			r.WorkerName,
			clockTime(&r.CheckIn),
			clockTime(r.CheckOut),
			clockTime(r.ActualStart),
			clockTime(r.ActualEnd),
			r.BreakMinutes,
			r.Wage,
			r.ModificationStatus,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", headerRow+1+i), &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		total += r.Wage
	}

	totalRow := headerRow + 1 + len(rows)
	if err := f.SetCellValue(sheet, fmt.Sprintf("G%d", totalRow), "合計"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("H%d", totalRow), total); err != nil {
		return nil, err
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func clockTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(domain.JST).Format("15:04")
}
