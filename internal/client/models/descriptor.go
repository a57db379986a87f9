package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/common"
)

// Descriptor captures what differs between record kinds: how ids look,
// whether figures are derived locally and which columns the backend accepts.
type Descriptor struct {
	Kind Kind
	// Derive fills balance/installment/savings from principal locally.
	Derive bool
	// CreateColumns are sent on remote create; the rest are server-owned.
	CreateColumns []string
	// UpdateColumns are sent on remote update.
	UpdateColumns []string
}

var descriptors = map[Kind]Descriptor{
	KindNewLoan: {
		Kind:   KindNewLoan,
		Derive: true,
		CreateColumns: []string{
			ColID, ColOwnerID, ColPhoto, ColName, ColAddress, ColPrincipal, ColCreatedAt, ColUpdatedAt,
		},
		UpdateColumns: []string{ColPhoto, ColName, ColAddress, ColPrincipal, ColUpdatedAt},
	},
	KindExistingLoan: {
		Kind: KindExistingLoan,
		CreateColumns: []string{
			ColID, ColOwnerID, ColPhoto, ColName, ColAddress,
			ColBalance, ColInstallment, ColSavings, ColCreatedAt, ColUpdatedAt,
		},
		UpdateColumns: []string{
			ColPhoto, ColName, ColAddress, ColBalance, ColInstallment, ColSavings, ColUpdatedAt,
		},
	},
}

// DescriptorFor returns the descriptor of kind.
func DescriptorFor(kind Kind) (Descriptor, error) {
	d, ok := descriptors[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", common.ErrInvalidKind, kind)
	}
	return d, nil
}

// NewID generates a local record id.
func (d Descriptor) NewID(now time.Time) string {
	return NewRecordID(d.Kind, now)
}

// ShapeLocal prepares fields for the local store, computing derived figures
// when the kind has them and a principal is present.
func (d Descriptor) ShapeLocal(f Fields) (Fields, error) {
	if !d.Derive {
		return f.Clone(), nil
	}
	return ApplyDerived(f)
}

// CheckUpdate rejects changes to columns the kind does not let users edit,
// such as pinjaman on an existing loan or the figures derived from it.
func (d Descriptor) CheckUpdate(f Fields) error {
	for _, c := range f.Keys() {
		if !slices.Contains(d.UpdateColumns, c) {
			return fmt.Errorf("%w: %s tidak dapat diubah untuk %s", common.ErrValidation, c, d.Kind)
		}
	}
	return nil
}

// ShapeCreate keeps only the columns the backend accepts on create.
func (d Descriptor) ShapeCreate(f Fields) Fields {
	return f.Only(d.CreateColumns...)
}

// ShapeUpdate keeps only the columns the backend accepts on update.
func (d Descriptor) ShapeUpdate(f Fields) Fields {
	return f.Only(d.UpdateColumns...)
}
