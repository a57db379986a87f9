package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/dropsync/internal/common"
)

const (
	minTextLength = 3
	// MinPrincipal is the smallest principal accepted for a new loan.
	MinPrincipal = 100000
)

// Draft is the user-supplied part of a record about to be created.
type Draft interface {
	Fields() Fields
	Validate() error
}

// NewLoanInput is the form data for a new-loan record.
type NewLoanInput struct {
	Photo     *string
	Name      string
	Address   string
	Principal float64
}

func (in NewLoanInput) Fields() Fields {
	f := Fields{
		ColName:      strings.TrimSpace(in.Name),
		ColAddress:   strings.TrimSpace(in.Address),
		ColPrincipal: in.Principal,
	}
	if in.Photo != nil {
		f[ColPhoto] = *in.Photo
	}
	return f
}

func (in NewLoanInput) Validate() error {
	if err := validateText("nama", in.Name); err != nil {
		return err
	}
	if err := validateText("alamat", in.Address); err != nil {
		return err
	}
	if in.Principal < MinPrincipal {
		return fmt.Errorf("%w: pinjaman minimal %d", common.ErrValidation, MinPrincipal)
	}
	return nil
}

// ExistingLoanInput is the form data for an existing-loan record. Its
// figures are entered directly rather than derived.
type ExistingLoanInput struct {
	Photo       *string
	Name        string
	Address     string
	Balance     float64
	Installment float64
	Savings     float64
}

func (in ExistingLoanInput) Fields() Fields {
	f := Fields{
		ColName:        strings.TrimSpace(in.Name),
		ColAddress:     strings.TrimSpace(in.Address),
		ColBalance:     in.Balance,
		ColInstallment: in.Installment,
		ColSavings:     in.Savings,
	}
	if in.Photo != nil {
		f[ColPhoto] = *in.Photo
	}
	return f
}

func (in ExistingLoanInput) Validate() error {
	if err := validateText("nama", in.Name); err != nil {
		return err
	}
	if err := validateText("alamat", in.Address); err != nil {
		return err
	}
	figures := []struct {
		name  string
		value float64
	}{{"saldo", in.Balance}, {"angsuran", in.Installment}, {"tabungan", in.Savings}}
	for _, fig := range figures {
		if fig.value < 0 {
			return fmt.Errorf("%w: %s tidak boleh negatif", common.ErrValidation, fig.name)
		}
	}
	return nil
}

// Patch lists the fields to change on an existing record; nil means unchanged.
type Patch struct {
	Photo       *string
	Name        *string
	Address     *string
	Principal   *float64
	Balance     *float64
	Installment *float64
	Savings     *float64
}

func (p Patch) Fields() Fields {
	f := Fields{}
	if p.Photo != nil {
		f[ColPhoto] = *p.Photo
	}
	if p.Name != nil {
		f[ColName] = strings.TrimSpace(*p.Name)
	}
	if p.Address != nil {
		f[ColAddress] = strings.TrimSpace(*p.Address)
	}
	if p.Principal != nil {
		f[ColPrincipal] = *p.Principal
	}
	if p.Balance != nil {
		f[ColBalance] = *p.Balance
	}
	if p.Installment != nil {
		f[ColInstallment] = *p.Installment
	}
	if p.Savings != nil {
		f[ColSavings] = *p.Savings
	}
	return f
}

// Validate applies the same rules as record creation to the fields set.
func (p Patch) Validate() error {
	if p.Name != nil {
		if err := validateText("nama", *p.Name); err != nil {
			return err
		}
	}
	if p.Address != nil {
		if err := validateText("alamat", *p.Address); err != nil {
			return err
		}
	}
	if p.Principal != nil && *p.Principal < MinPrincipal {
		return fmt.Errorf("%w: pinjaman minimal %d", common.ErrValidation, MinPrincipal)
	}
	for _, v := range []*float64{p.Balance, p.Installment, p.Savings} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: nilai tidak boleh negatif", common.ErrValidation)
		}
	}
	return nil
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return len(p.Fields()) == 0
}

func validateText(name, v string) error {
	if utf8.RuneCountInString(strings.TrimSpace(v)) < minTextLength {
		return fmt.Errorf("%w: %s minimal %d karakter", common.ErrValidation, name, minTextLength)
	}
	return nil
}
