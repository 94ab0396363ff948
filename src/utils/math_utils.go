package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places kept in stored values.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds d to MoneyPlaces, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// LineValue is qty*price rounded to MoneyPlaces. Every total is a sum of
// line values, so totals stay exact at MoneyPlaces however they are built.
func LineValue(qty, price decimal.Decimal) decimal.Decimal {
	return RoundMoney(qty.Mul(price))
}

// SafeDiv returns num/den, or zero when den is not positive.
func SafeDiv(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den)
}

// Percent returns (num/den)*100, or zero when den is not positive.
func Percent(num, den decimal.Decimal) decimal.Decimal {
	return SafeDiv(num, den).Mul(hundred)
}

// ParseDecimalCell reads a numeric cell leniently. Blank or unreadable cells
// are zero; thousands separators and surrounding spaces are ignored.
func ParseDecimalCell(cell string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if cleaned == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatDecimalCell renders d for storage, rounded to MoneyPlaces without
// trailing zeros ("15", "6.67").
func FormatDecimalCell(d decimal.Decimal) string {
	return RoundMoney(d).String()
}
