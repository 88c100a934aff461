// Package billing は作業時間からの請求額計算と請求書の生成・管理を提供する。
package billing

import (
	"math/bits"
	"strings"

	"github.com/hitoshi/retainerkit/internal/model"
)

const (
	// MaxAmountCents は請求額の上限（最小通貨単位）。
	MaxAmountCents int64 = 1_000_000_000
	// MaxHourlyRateCents は請求書生成時に指定できる時間単価の上限。
	MaxHourlyRateCents int64 = 1_000_000_000
	// DefaultCurrency は契約・指定のどちらにも通貨がない場合に使う。
	DefaultCurrency = "USD"
)

// ComputeAmountCents は作業分数と時間単価から請求額を計算する。
// minutes*rate/60 を四捨五入（0.5は切り上げ）し、MaxAmountCentsで頭打ちにする。
// 途中計算は128ビットで行うため、大きな入力でも桁あふれしない。
func ComputeAmountCents(minutes, hourlyRateCents int64) int64 {
	if minutes <= 0 || hourlyRateCents <= 0 {
		return 0
	}

	hi, lo := bits.Mul64(uint64(minutes), uint64(hourlyRateCents))
	var carry uint64
	lo, carry = bits.Add64(lo, 30, 0)
	hi += carry

	// 商が64ビットに収まらない場合は上限を超えている
	if hi >= 60 {
		return MaxAmountCents
	}
	q, _ := bits.Div64(hi, lo, 60)
	if q > uint64(MaxAmountCents) {
		return MaxAmountCents
	}
	return int64(q)
}

// NormalizeCurrency は通貨コードを前後の空白を除いて大文字にし、英字3文字であることを確認する。
func NormalizeCurrency(s string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(s))
	if len(c) != 3 {
		return "", model.NewValidationError("Currency must be a 3-letter code.")
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return "", model.NewValidationError("Currency must be a 3-letter code.")
		}
	}
	return c, nil
}
