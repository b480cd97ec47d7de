package checkout

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits переводит сумму в основных единицах в центы
// с округлением half away from zero.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits переводит центы в основные единицы.
func FromMinorUnits(minor int64) float64 {
	return decimal.New(minor, -2).InexactFloat64()
}

// UnitAmountWithTax возвращает цену за единицу в центах с налогом:
// сначала цена округляется до центов, затем умножается на (1 + taxRate)
// и снова округляется half away from zero.
func UnitAmountWithTax(price float64, taxRate decimal.Decimal) int64 {
	cents := decimal.NewFromInt(ToMinorUnits(price))
	return cents.Mul(decimal.NewFromInt(1).Add(taxRate)).Round(0).IntPart()
}
