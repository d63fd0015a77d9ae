package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the reporting currency every converted amount is in.
const BaseCurrency = "JPY"

// supportedCurrencies lists the codes the entry form offers, base first.
var supportedCurrencies = []string{"JPY", "NTD", "USDT", "AED", "USD", "IDR", "ETH", "WBTC"}

var currencyAliases = map[string]string{
	"円":   "JPY",
	"¥":   "JPY",
	"YEN": "JPY",
	"NT$": "NTD",
	"TWD": "NTD",
}

// SupportedCurrencies returns the currency codes in display order.
func SupportedCurrencies() []string {
	return append([]string(nil), supportedCurrencies...)
}

// NormalizeCurrency maps UI spellings to codes. Unknown values yield "".
func NormalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if alias, ok := currencyAliases[c]; ok {
		return alias
	}
	for _, s := range supportedCurrencies {
		if s == c {
			return s
		}
	}
	return ""
}

// IsBaseCurrency reports whether c denotes the reporting currency.
func IsBaseCurrency(c string) bool {
	return NormalizeCurrency(c) == BaseCurrency
}

// ConvertToBase returns the base-currency value of amount. Base currency
// amounts are returned unchanged. Other currencies need a rate; without one
// the result is zero and ok is false.
func ConvertToBase(amount decimal.Decimal, currency string, rate decimal.NullDecimal) (decimal.Decimal, bool) {
	if IsBaseCurrency(currency) {
		return amount, true
	}
	if !rate.Valid {
		return decimal.Zero, false
	}
	return amount.Mul(rate.Decimal), true
}

// RoundBase rounds a base-currency amount to whole yen for display.
func RoundBase(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// ParseAmount parses a user supplied decimal, accepting a comma as the
// decimal separator and thousands separators in the Japanese style.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("¥", "", "￥", "", " ", "").Replace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") && len(s)-strings.Index(s, ",") != 4 {
		s = strings.Replace(s, ",", ".", 1)
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseRate parses an optional rate. Empty input yields an invalid
// NullDecimal and no error.
func ParseRate(s string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseAmount(s)
	if err != nil || !d.IsPositive() {
		return decimal.NullDecimal{}, ErrInvalidRate
	}
	return decimal.NewNullDecimal(d), nil
}

// NewRow builds a row with a normalized currency and its converted amount
// derived from amount and rate.
func NewRow(r TransactionRow) (TransactionRow, error) {
	code := NormalizeCurrency(r.Currency)
	if code == "" {
		return TransactionRow{}, ErrInvalidCurrency
	}
	r.Currency = code
	if code == BaseCurrency && !r.Rate.Valid {
		r.Rate = decimal.NewNullDecimal(decimal.NewFromInt(1))
	}
	converted, ok := ConvertToBase(r.Amount, code, r.Rate)
	if !ok {
		return TransactionRow{}, ErrInvalidRate
	}
	r.ConvertedAmountBase = converted
	if err := r.Validate(); err != nil {
		return TransactionRow{}, err
	}
	return r, nil
}
