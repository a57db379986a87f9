package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is a loan record as stored locally and exchanged with the backend.
// Principal is required for new-loan records and absent for existing-loan
// ones; the three derived figures may be absent until computed.
type Record struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"profile_id"`
	Photo       *string  `json:"foto,omitempty"`
	Name        string   `json:"nama"`
	Address     string   `json:"alamat"`
	Principal   *float64 `json:"pinjaman,omitempty"`
	Balance     *float64 `json:"saldo,omitempty"`
	Installment *float64 `json:"angsuran,omitempty"`
	Savings     *float64 `json:"tabungan,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	Synced      bool     `json:"-"`
}

// Fields converts r to a column set. Optional columns that are nil are
// omitted rather than written as NULL. The synced flag is not included.
func (r *Record) Fields() Fields {
	f := Fields{
		ColID:        r.ID,
		ColOwnerID:   r.OwnerID,
		ColName:      r.Name,
		ColAddress:   r.Address,
		ColCreatedAt: r.CreatedAt,
	}
	if r.Photo != nil {
		f[ColPhoto] = *r.Photo
	}
	if r.Principal != nil {
		f[ColPrincipal] = *r.Principal
	}
	if r.Balance != nil {
		f[ColBalance] = *r.Balance
	}
	if r.Installment != nil {
		f[ColInstallment] = *r.Installment
	}
	if r.Savings != nil {
		f[ColSavings] = *r.Savings
	}
	if r.UpdatedAt != "" {
		f[ColUpdatedAt] = r.UpdatedAt
	}
	return f
}

// RecordFromFields builds a Record from a full column set, as produced by a
// queued insert snapshot or a remote response.
func RecordFromFields(f Fields) (*Record, error) {
	r := &Record{
		ID:        f.String(ColID),
		OwnerID:   f.String(ColOwnerID),
		Name:      f.String(ColName),
		Address:   f.String(ColAddress),
		CreatedAt: f.String(ColCreatedAt),
		UpdatedAt: f.String(ColUpdatedAt),
	}
	if r.ID == "" {
		return nil, fmt.Errorf("record without %s", ColID)
	}
	if p, ok := f[ColPhoto].(string); ok {
		r.Photo = &p
	}

	var err error
	if r.Principal, err = f.Float(ColPrincipal); err != nil {
		return nil, err
	}
	if r.Balance, err = f.Float(ColBalance); err != nil {
		return nil, err
	}
	if r.Installment, err = f.Float(ColInstallment); err != nil {
		return nil, err
	}
	if r.Savings, err = f.Float(ColSavings); err != nil {
		return nil, err
	}

	switch s := f[ColSynced].(type) {
	case bool:
		r.Synced = s
	case int64:
		r.Synced = s != 0
	case float64:
		r.Synced = s != 0
	case int:
		r.Synced = s != 0
	}

	return r, nil
}

// NewRecordID returns a locally unique identifier for a record of kind k,
// shaped "<prefix>_<unix millis>_<random>".
func NewRecordID(k Kind, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", k.IDPrefix(), now.UnixMilli(), suffix)
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
