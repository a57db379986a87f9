package models

import (
	"fmt"
	"sort"

	"github.com/dmitrijs2005/dropsync/internal/common"
)

// Column names shared by both record tables.
const (
	ColID          = "id"
	ColOwnerID     = "profile_id"
	ColPhoto       = "foto"
	ColName        = "nama"
	ColAddress     = "alamat"
	ColPrincipal   = "pinjaman"
	ColBalance     = "saldo"
	ColInstallment = "angsuran"
	ColSavings     = "tabungan"
	ColCreatedAt   = "created_at"
	ColUpdatedAt   = "updated_at"
	ColSynced      = "synced"
)

// Columns lists every record column in schema order.
var Columns = []string{
	ColID, ColOwnerID, ColPhoto, ColName, ColAddress, ColPrincipal,
	ColBalance, ColInstallment, ColSavings, ColCreatedAt, ColUpdatedAt, ColSynced,
}

var knownColumns = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Columns))
	for _, c := range Columns {
		m[c] = struct{}{}
	}
	return m
}()

// IsColumn reports whether name is a record column.
func IsColumn(name string) bool {
	_, ok := knownColumns[name]
	return ok
}

// Fields is a partial record keyed by column name. A column that is absent
// is left untouched by writes; a present nil value writes NULL.
type Fields map[string]any

// Keys returns the column names in a deterministic order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Without returns a copy with the named columns removed.
func (f Fields) Without(cols ...string) Fields {
	out := f.Clone()
	for _, c := range cols {
		delete(out, c)
	}
	return out
}

// Only returns a copy holding just the named columns that are present.
func (f Fields) Only(cols ...string) Fields {
	out := make(Fields, len(cols))
	for _, c := range cols {
		if v, ok := f[c]; ok {
			out[c] = v
		}
	}
	return out
}

// String returns the value of a text column, or "" when absent or not text.
func (f Fields) String(col string) string {
	s, _ := f[col].(string)
	return s
}

// Float returns the value of a numeric column. JSON-decoded numbers arrive
// as float64; integers written by hand are accepted too.
func (f Fields) Float(col string) (*float64, error) {
	v, ok := f[col]
	if !ok || v == nil {
		return nil, nil
	}
	var x float64
	switch n := v.(type) {
	case float64:
		x = n
	case float32:
		x = float64(n)
	case int:
		x = float64(n)
	case int64:
		x = float64(n)
	case *float64:
		if n == nil {
			return nil, nil
		}
		x = *n
	default:
		return nil, fmt.Errorf("column %s: unexpected numeric value %T", col, v)
	}
	return &x, nil
}

// Validate checks that every key is a known column.
func (f Fields) Validate() error {
	for k := range f {
		if !IsColumn(k) {
			return fmt.Errorf("%w: %q", common.ErrUnknownColumn, k)
		}
	}
	return nil
}
