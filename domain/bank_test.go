package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKanaConversion(t *testing.T) {
	assert.Equal(t, "みずほ", KatakanaToHiragana("ミズホ"))
	assert.Equal(t, "ミズホ", HiraganaToKatakana("みずほ"))
	assert.Equal(t, "ABC銀行", KatakanaToHiragana("ABC銀行"))
}

func TestSearchVariants(t *testing.T) {
	v := SearchVariants(" みずほ ")
	assert.Equal(t, "みずほ", v[0])
	assert.Contains(t, v, "ミズホ")

	v = SearchVariants("ＡＢＣ")
	assert.Contains(t, v, "ABC")

	v = SearchVariants("0001")
	assert.Contains(t, v, "0001")
	assert.Contains(t, v, "０００１")

	assert.Nil(t, SearchVariants("   "))
}

func TestMatchesAny(t *testing.T) {
	variants := SearchVariants("みずほ")
	assert.True(t, MatchesAny(variants, "0001", "みずほ銀行", "ミズホ", "みずほ"))
	assert.True(t, MatchesAny(SearchVariants("000"), "0001", "x", "", ""))
	assert.False(t, MatchesAny(variants, "0005", "三菱UFJ", "ミツビシユーエフジエイ", "みつびしゆーえふじえい"))
	assert.True(t, MatchesAny(SearchVariants("ufj"), "0005", "三菱UFJ", "", ""))
}

func TestIsBankCode(t *testing.T) {
	assert.True(t, IsBankCode("0001"))
	assert.False(t, IsBankCode("001"))
	assert.False(t, IsBankCode("00a1"))
}
