package domain

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/width"
)

type Bank struct {
	Code      string    `gorm:"primaryKey;size:4" json:"code"`
	Name      string    `gorm:"size:128;index;not null" json:"name"`
	Kana      string    `gorm:"size:128" json:"kana"`
	Hira      string    `gorm:"size:128" json:"hira"`
	UpdatedAt time.Time `json:"-"`
}

type Branch struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	BankCode  string    `gorm:"size:4;uniqueIndex:idx_branch_bank_code;not null" json:"bank_code"`
	Code      string    `gorm:"size:3;uniqueIndex:idx_branch_bank_code;not null" json:"code"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Kana      string    `gorm:"size:128" json:"kana"`
	Hira      string    `gorm:"size:128" json:"hira"`
	UpdatedAt time.Time `json:"-"`
}

var bankCodePattern = regexp.MustCompile(`^\d{4}$`)

func IsBankCode(s string) bool { return bankCodePattern.MatchString(s) }

const kanaOffset = 'ァ' - 'ぁ'

// KatakanaToHiragana shifts full-width katakana into the hiragana block.
func KatakanaToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ァ' && r <= 'ヶ' {
			return r - kanaOffset
		}
		return r
	}, s)
}

// HiraganaToKatakana shifts hiragana into the full-width katakana block.
func HiraganaToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' {
			return r + kanaOffset
		}
		return r
	}, s)
}

// ToHalfWidth narrows full-width ASCII and katakana.
func ToHalfWidth(s string) string { return width.Narrow.String(s) }

// ToFullWidth widens ASCII and half-width katakana.
func ToFullWidth(s string) string { return width.Widen.String(s) }

// SearchVariants expands a bank or branch query into its width and kana spellings, deduplicated,
// with the original first.
func SearchVariants(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, v := range []string{q, ToHalfWidth(q), ToFullWidth(q), KatakanaToHiragana(q), HiraganaToKatakana(q)} {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// MatchesAny reports whether any variant is contained in name/kana/hira or prefixes code,
// ignoring case.
func MatchesAny(variants []string, code, name, kana, hira string) bool {
	for _, v := range variants {
		lv := strings.ToLower(v)
		if strings.HasPrefix(code, v) ||
			strings.Contains(strings.ToLower(name), lv) ||
			strings.Contains(strings.ToLower(kana), lv) ||
			strings.Contains(strings.ToLower(hira), lv) {
			return true
		}
	}
	return false
}
