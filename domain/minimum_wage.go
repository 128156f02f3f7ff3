package domain

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type MinimumWage struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Prefecture    string    `gorm:"size:16;index:idx_min_wage_pref_from;not null" json:"prefecture"`
	HourlyWage    int       `gorm:"not null" json:"hourly_wage"`
	EffectiveFrom time.Time `gorm:"index:idx_min_wage_pref_from;not null" json:"effective_from"`
	UpdatedByType string    `gorm:"size:16" json:"updated_by_type,omitempty"`
	UpdatedByID   *uint     `json:"updated_by_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsScheduled reports whether the row takes effect after the JST calendar day of now.
func (m MinimumWage) IsScheduled(now time.Time) bool {
	return JSTDateString(m.EffectiveFrom) > JSTDateString(now)
}

type MinimumWageHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Prefecture    string    `gorm:"size:16;index;not null" json:"prefecture"`
	HourlyWage    int       `gorm:"not null" json:"hourly_wage"`
	EffectiveFrom time.Time `gorm:"not null" json:"effective_from"`
	EffectiveTo   time.Time `gorm:"not null" json:"effective_to"`
	ArchivedAt    time.Time `gorm:"index" json:"archived_at"`
}

// Archive produces the history row for a wage that stops applying at effectiveTo.
func (m MinimumWage) Archive(effectiveTo, now time.Time) MinimumWageHistory {
	return MinimumWageHistory{
		Prefecture:    m.Prefecture,
		HourlyWage:    m.HourlyWage,
		EffectiveFrom: m.EffectiveFrom,
		EffectiveTo:   effectiveTo,
		ArchivedAt:    now,
	}
}

// ParseWageValue accepts "1163" and "1,163". Zero and negatives are rejected.
func ParseWageValue(s string) (int, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(cleaned)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

type WageRow struct {
	Prefecture    string
	HourlyWage    int
	EffectiveFrom string // YYYY-MM-DD, empty means the import default
}

type CSVRowError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// splitCSVLine parses one record. Quoted fields keep their commas, so "1,163" survives.
func splitCSVLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rec, err := r.Read()
	if err != nil {
		return nil, err
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	return rec, nil
}

func isWageHeader(line string) bool {
	l := strings.ToLower(line)
	for _, k := range []string{"都道府県", "prefecture", "時給", "wage"} {
		if strings.Contains(l, k) {
			return true
		}
	}
	return false
}

// ParseMinimumWageCSV reads "prefecture,wage[,effective date]" rows. The header row is
// detected automatically. Bad and duplicate rows are reported per line and skipped.
func ParseMinimumWageCSV(content string) ([]WageRow, []CSVRowError) {
	content = strings.TrimPrefix(content, "\ufeff")
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}

	start := 0
	if len(lines) > 0 && isWageHeader(lines[0]) {
		start = 1
	}

	var (
		rows []WageRow
		errs []CSVRowError
		seen = map[string]bool{}
	)
	for i := start; i < len(lines); i++ {
		line := lines[i]
		fail := func(reason string) {
			errs = append(errs, CSVRowError{Line: i + 1, Content: line, Reason: reason})
		}
		parts, err := splitCSVLine(line)
		if err != nil || len(parts) < 2 {
			fail("都道府県名または時給が不正です")
			continue
		}
		pref, ok1 := NormalizePrefecture(parts[0])
		wage, ok2 := ParseWageValue(parts[1])
		if !ok1 || !ok2 {
			fail("都道府県名または時給が不正です")
			continue
		}
		row := WageRow{Prefecture: pref, HourlyWage: wage}
		if len(parts) > 2 && parts[2] != "" {
			d, err := ParseJSTDate(parts[2])
			if err != nil {
				fail("適用開始日が不正です")
				continue
			}
			row.EffectiveFrom = JSTDateString(d)
		}
		if seen[pref] {
			fail(fmt.Sprintf("都道府県「%s」が重複しています", pref))
			continue
		}
		seen[pref] = true
		rows = append(rows, row)
	}
	return rows, errs
}

// FormatMinimumWageCSV renders rows with a Japanese header and CRLF line endings.
// The effective date column appears when withDate is set.
func FormatMinimumWageCSV(wages []MinimumWage, withDate bool) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.UseCRLF = true
	header := []string{"都道府県", "時給"}
	if withDate {
		header = append(header, "適用開始日")
	}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, m := range wages {
		row := []string{m.Prefecture, strconv.Itoa(m.HourlyWage)}
		if withDate {
			row = append(row, m.EffectiveFrom.In(JST).Format("2006/01/02"))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return b.String(), nil
}
