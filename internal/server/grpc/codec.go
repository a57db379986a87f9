package grpc

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
)

// Column names on the wire. They match the table columns.
const (
	colID          = "id"
	colOwnerID     = "profile_id"
	colPhoto       = "foto"
	colName        = "nama"
	colAddress     = "alamat"
	colPrincipal   = "pinjaman"
	colBalance     = "saldo"
	colInstallment = "angsuran"
	colSavings     = "tabungan"
	colCreatedAt   = "created_at"
	colUpdatedAt   = "updated_at"
)

// decodeRecord reads a create payload. The owner is taken from the access
// token, so a profile_id in the payload is ignored.
func decodeRecord(m map[string]any) (*models.Record, error) {
	rec := &models.Record{}
	for k, v := range m {
		var err error
		switch k {
		case colOwnerID:
		case colID:
			rec.ID, err = text(k, v)
		case colPhoto:
			rec.Photo, err = optText(k, v)
		case colName:
			rec.Name, err = text(k, v)
		case colAddress:
			rec.Address, err = text(k, v)
		case colPrincipal:
			rec.Principal, err = number(k, v)
		case colBalance:
			rec.Balance, err = number(k, v)
		case colInstallment:
			rec.Installment, err = number(k, v)
		case colSavings:
			rec.Savings, err = number(k, v)
		case colCreatedAt:
			rec.CreatedAt, err = timestamp(k, v)
		case colUpdatedAt:
			rec.UpdatedAt, err = timestamp(k, v)
		default:
			err = fmt.Errorf("%w: %s", common.ErrUnknownColumn, k)
		}
		if err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// decodePatch reads an update payload. Null values leave a column as is.
func decodePatch(m map[string]any) (models.RecordPatch, error) {
	var p models.RecordPatch
	for k, v := range m {
		if v == nil {
			continue
		}
		var err error
		switch k {
		case colID, colOwnerID, colCreatedAt:
			err = fmt.Errorf("%w: column %s cannot be changed", common.ErrValidation, k)
		case colPhoto:
			p.Photo, err = optText(k, v)
		case colName:
			p.Name, err = optText(k, v)
		case colAddress:
			p.Address, err = optText(k, v)
		case colPrincipal:
			p.Principal, err = number(k, v)
		case colBalance:
			p.Balance, err = number(k, v)
		case colInstallment:
			p.Installment, err = number(k, v)
		case colSavings:
			p.Savings, err = number(k, v)
		case colUpdatedAt:
			var ts time.Time
			if ts, err = timestamp(k, v); err == nil {
				p.UpdatedAt = &ts
			}
		default:
			err = fmt.Errorf("%w: %s", common.ErrUnknownColumn, k)
		}
		if err != nil {
			return models.RecordPatch{}, err
		}
	}
	return p, nil
}

// encodeRecord renders rec with the value types structpb accepts.
func encodeRecord(rec *models.Record) map[string]any {
	m := map[string]any{
		colID:          rec.ID,
		colOwnerID:     rec.OwnerID,
		colPhoto:       nil,
		colName:        rec.Name,
		colAddress:     rec.Address,
		colPrincipal:   nil,
		colBalance:     nil,
		colInstallment: nil,
		colSavings:     nil,
		colCreatedAt:   common.FormatTimestamp(rec.CreatedAt),
		colUpdatedAt:   common.FormatTimestamp(rec.UpdatedAt),
	}
	if rec.Photo != nil {
		m[colPhoto] = *rec.Photo
	}
	for col, v := range map[string]*float64{
		colPrincipal:   rec.Principal,
		colBalance:     rec.Balance,
		colInstallment: rec.Installment,
		colSavings:     rec.Savings,
	} {
		if v != nil {
			m[col] = *v
		}
	}
	return m
}

func encodeRecords(recs []*models.Record) []any {
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, encodeRecord(r))
	}
	return out
}

func text(col string, v any) (string, error) {
	s, ok := v.(string)
	if !ok && v != nil {
		return "", fmt.Errorf("%w: %s must be text", common.ErrValidation, col)
	}
	return s, nil
}

func optText(col string, v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, err := text(col, v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func number(col string, v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a number", common.ErrValidation, col)
	}
	return &f, nil
}

func timestamp(col string, v any) (time.Time, error) {
	s, err := text(col, v)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	t, err := common.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", common.ErrValidation, col, err)
	}
	return t, nil
}
