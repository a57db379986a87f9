// Package models defines the client-side domain types: record kinds, loan
// records, partial field sets, queued operations and sync status.
package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dropsync/internal/common"
)

// Kind identifies one of the record collections kept by the field client.
type Kind string

const (
	// KindNewLoan is a newly disbursed loan ("drop baru").
	KindNewLoan Kind = "new_loan"
	// KindExistingLoan is a follow-up on a running loan ("drop lama").
	KindExistingLoan Kind = "existing_loan"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindNewLoan, KindExistingLoan}

var kindTables = map[Kind]string{
	KindNewLoan:      "drop_baru_harian",
	KindExistingLoan: "drop_lama_harian",
}

var kindPrefixes = map[Kind]string{
	KindNewLoan:      "drop_baru",
	KindExistingLoan: "drop_lama",
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindTables[k]
	return ok
}

// Table is the local and remote table backing k.
func (k Kind) Table() string {
	return kindTables[k]
}

// IDPrefix is the prefix of locally generated identifiers.
func (k Kind) IDPrefix() string {
	return kindPrefixes[k]
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts the canonical name, the table name or the short field
// aliases "baru"/"lama".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new_loan", "new", "baru", "drop_baru", "drop_baru_harian":
		return KindNewLoan, nil
	case "existing_loan", "existing", "lama", "drop_lama", "drop_lama_harian":
		return KindExistingLoan, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrInvalidKind, s)
}

// KindFromTable maps a table name back to its kind.
func KindFromTable(table string) (Kind, error) {
	for k, t := range kindTables {
		if t == table {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: table %q", common.ErrInvalidKind, table)
}
