// Package models defines the backend's persisted data.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/common"
)

// Table names a record table.
type Table string

const (
	TableNewLoan      Table = "drop_baru_harian"
	TableExistingLoan Table = "drop_lama_harian"
)

// ParseTable validates a table name received from a client.
func ParseTable(s string) (Table, error) {
	switch t := Table(s); t {
	case TableNewLoan, TableExistingLoan:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown table %q", common.ErrInvalidKind, s)
}

// Derived reports whether saldo, angsuran and tabungan are generated from
// pinjaman by the database.
func (t Table) Derived() bool { return t == TableNewLoan }

// Record is one row of either record table.
type Record struct {
	ID          string
	OwnerID     string
	Photo       *string
	Name        string
	Address     string
	Principal   *float64
	Balance     *float64
	Installment *float64
	Savings     *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecordPatch lists the columns to change; nil leaves a column as is.
type RecordPatch struct {
	Photo       *string
	Name        *string
	Address     *string
	Principal   *float64
	Balance     *float64
	Installment *float64
	Savings     *float64
	UpdatedAt   *time.Time
}

// Empty reports whether the patch changes nothing but the timestamp.
func (p RecordPatch) Empty() bool {
	return p.Photo == nil && p.Name == nil && p.Address == nil && p.Principal == nil &&
		p.Balance == nil && p.Installment == nil && p.Savings == nil
}
