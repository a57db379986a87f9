package models

import "github.com/shopspring/decimal"

var (
	installmentRate = decimal.RequireFromString("0.05")
	savingsRate     = decimal.RequireFromString("0.05")
	balanceRate     = decimal.RequireFromString("1.2")
)

// Derived holds the figures computed from a new-loan principal.
type Derived struct {
	Balance     float64
	Installment float64
	Savings     float64
}

// DeriveFromPrincipal computes installment and savings at 5% and balance at
// 120% of principal, each rounded half away from zero to whole units.
// These are provisional values; the backend's computed columns win once the
// record is synced.
func DeriveFromPrincipal(principal float64) Derived {
	p := decimal.NewFromFloat(principal)
	return Derived{
		Balance:     p.Mul(balanceRate).Round(0).InexactFloat64(),
		Installment: p.Mul(installmentRate).Round(0).InexactFloat64(),
		Savings:     p.Mul(savingsRate).Round(0).InexactFloat64(),
	}
}

// ApplyDerived fills the derived columns of f from its principal. Fields
// without a principal are returned unchanged.
func ApplyDerived(f Fields) (Fields, error) {
	p, err := f.Float(ColPrincipal)
	if err != nil || p == nil {
		return f, err
	}
	d := DeriveFromPrincipal(*p)
	out := f.Clone()
	out[ColBalance] = d.Balance
	out[ColInstallment] = d.Installment
	out[ColSavings] = d.Savings
	return out, nil
}
