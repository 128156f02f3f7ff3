package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrefecture(t *testing.T) {
	cases := map[string]string{
		"東京":    "東京都",
		"東京都":   "東京都",
		"京都":    "京都府",
		"大阪":    "大阪府",
		"北海道":   "北海道",
		" 神奈川 ": "神奈川県",
		"鹿児島":   "鹿児島県",
	}
	for in, want := range cases {
		got, ok := NormalizePrefecture(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "Tokyo", "東", "京都都"} {
		_, ok := NormalizePrefecture(bad)
		assert.False(t, ok, bad)
	}
	assert.Len(t, Prefectures, 47)
}

func TestParseWageValue(t *testing.T) {
	v, ok := ParseWageValue(" 1,163 ")
	assert.True(t, ok)
	assert.Equal(t, 1163, v)

	for _, bad := range []string{"", "0", "-5", "abc"} {
		_, ok := ParseWageValue(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseMinimumWageCSV(t *testing.T) {
	csv := "\ufeff都道府県,時給,適用開始日\r\n" +
		"東京,\"1,163\"\r\n" +
		"大阪府,1064,2026/10/01\r\n" +
		"\r\n" +
		"東京都,1200\r\n" +
		"どこか,1000\r\n" +
		"愛知県,1077,2026-13-40\r\n"

	rows, errs := ParseMinimumWageCSV(csv)

	require.Len(t, rows, 2)
	assert.Equal(t, WageRow{Prefecture: "東京都", HourlyWage: 1163}, rows[0])
	assert.Equal(t, WageRow{Prefecture: "大阪府", HourlyWage: 1064, EffectiveFrom: "2026-10-01"}, rows[1])

	require.Len(t, errs, 3)
	assert.Equal(t, 4, errs[0].Line)
	assert.Contains(t, errs[0].Reason, "重複")
	assert.Equal(t, 5, errs[1].Line)
	assert.Equal(t, 6, errs[2].Line)
	assert.Contains(t, errs[2].Reason, "適用開始日")
}

func TestParseMinimumWageCSV_NoHeader(t *testing.T) {
	rows, errs := ParseMinimumWageCSV("沖縄,952\n北海道,1010")
	assert.Empty(t, errs)
	assert.Len(t, rows, 2)
}

func TestMinimumWageIsScheduledUsesJSTDate(t *testing.T) {
	now := time.Date(2026, 9, 30, 15, 30, 0, 0, time.UTC) // 2026-10-01 00:30 JST
	w := MinimumWage{EffectiveFrom: time.Date(2026, 10, 1, 0, 0, 0, 0, JST)}
	assert.False(t, w.IsScheduled(now))

	w.EffectiveFrom = time.Date(2026, 10, 2, 0, 0, 0, 0, JST)
	assert.True(t, w.IsScheduled(now))
}

func TestFormatMinimumWageCSV(t *testing.T) {
	out, err := FormatMinimumWageCSV([]MinimumWage{
		{Prefecture: "東京都", HourlyWage: 1163, EffectiveFrom: time.Date(2025, 10, 1, 0, 0, 0, 0, JST)},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "都道府県,時給,適用開始日\r\n東京都,1163,2025/10/01\r\n", out)
}

func TestMinimumWageCSV_QuotedFieldsRoundTrip(t *testing.T) {
	out, err := FormatMinimumWageCSV([]MinimumWage{{Prefecture: "東京都,特別区", HourlyWage: 1163}}, false)
	require.NoError(t, err)
	assert.Equal(t, "都道府県,時給\r\n\"東京都,特別区\",1163\r\n", out)

	parts, err := splitCSVLine(`"東京都,特別区", "1,163"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"東京都,特別区", "1,163"}, parts)

	wages := []MinimumWage{
		{Prefecture: "北海道", HourlyWage: 1075, EffectiveFrom: time.Date(2025, 10, 4, 0, 0, 0, 0, JST)},
		{Prefecture: "沖縄県", HourlyWage: 1023, EffectiveFrom: time.Date(2025, 12, 1, 0, 0, 0, 0, JST)},
	}
	out, err = FormatMinimumWageCSV(wages, true)
	require.NoError(t, err)
	rows, errs := ParseMinimumWageCSV(out)
	assert.Empty(t, errs)
	assert.Equal(t, []WageRow{
		{Prefecture: "北海道", HourlyWage: 1075, EffectiveFrom: "2025-10-04"},
		{Prefecture: "沖縄県", HourlyWage: 1023, EffectiveFrom: "2025-12-01"},
	}, rows)
}
