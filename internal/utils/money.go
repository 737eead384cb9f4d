package utils

import "github.com/shopspring/decimal"

// RoundMoney rounds to the nearest integer currency unit, halves away from zero.
func RoundMoney(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
