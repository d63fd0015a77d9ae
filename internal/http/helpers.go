package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"assetboard/internal/core"
	"assetboard/internal/sheets"
)

var errTemplatesMissing = errors.New("templates not loaded")

var printer = message.NewPrinter(language.Japanese)

// FormatYen renders a base currency amount rounded to whole yen with
// thousands separators, e.g. "¥1,234,567" or "-¥500".
func FormatYen(d decimal.Decimal) string {
	r := core.RoundBase(d)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Neg()
	}
	return sign + "¥" + printer.Sprintf("%d", r.IntPart())
}

// FormatUSD renders a USD amount with two decimals.
func FormatUSD(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + "$" + printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// FormatAmount renders an amount in its original currency.
func FormatAmount(d decimal.Decimal, currency string) string {
	if core.IsBaseCurrency(currency) {
		return FormatYen(d)
	}
	return printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(8))) + " " + currency
}

// FormatPercent renders a signed percentage such as "+12.5%".
func FormatPercent(d decimal.Decimal) string {
	s := d.StringFixed(2)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if d.IsPositive() {
		s = "+" + s
	}
	return s + "%"
}

func signClass(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return "pos"
	case -1:
		return "neg"
	}
	return ""
}

var templateFuncs = template.FuncMap{
	"yen":       FormatYen,
	"usd":       FormatUSD,
	"pct":       FormatPercent,
	"signClass": signClass,
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// errorMessage turns domain errors into the text shown next to a form.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		return "日付が不正です"
	case errors.Is(err, core.ErrEmptyAccount):
		return "口座を入力してください"
	case errors.Is(err, core.ErrInvalidType):
		return "区分が不正です"
	case errors.Is(err, core.ErrInvalidSegment):
		return "セグメントが不正です"
	case errors.Is(err, core.ErrInvalidAmount):
		return "金額が不正です"
	case errors.Is(err, core.ErrInvalidCurrency):
		return "通貨が不正です"
	case errors.Is(err, core.ErrInvalidRate):
		return "レートが不正です"
	case errors.Is(err, core.ErrInvalidCategory):
		return "カテゴリ2が区分と一致しません"
	case errors.Is(err, sheets.ErrNotFound):
		return "エントリが見つかりません"
	case errors.Is(err, context.DeadlineExceeded):
		return "バックエンドがタイムアウトしました"
	}
	return "バックエンドエラー: " + err.Error()
}

// monthKey formats the key used by monthly rate tables.
func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
