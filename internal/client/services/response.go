package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/common"
)

// Response is what record operations hand back to the UI. Err is nil on
// success. Queued is set when the change was stored locally and waits in
// the pending queue.
type Response[T any] struct {
	Data   T
	Err    error
	Queued bool
}

func (r Response[T]) Success() bool { return r.Err == nil }

// Message is a short user-facing text for the outcome.
func (r Response[T]) Message() string {
	switch {
	case r.Err == nil && r.Queued:
		return "Data disimpan offline dan akan disinkronkan"
	case r.Err == nil:
		return "Berhasil"
	case errors.Is(r.Err, common.ErrNotFound):
		return "Data tidak ditemukan"
	case errors.Is(r.Err, common.ErrOffline):
		return "Tidak ada koneksi internet"
	case errors.Is(r.Err, client.ErrUnauthorized):
		return "Sesi berakhir, silakan login kembali"
	case errors.Is(r.Err, common.ErrValidation):
		return r.Err.Error()
	}
	return fmt.Sprintf("Gagal: %v", r.Err)
}

func ok[T any](v T) Response[T] { return Response[T]{Data: v} }

func queued[T any](v T) Response[T] { return Response[T]{Data: v, Queued: true} }

func fail[T any](err error) Response[T] { return Response[T]{Err: err} }

// recoverResponse turns a panic in an operation into a failed response.
func recoverResponse[T any](resp *Response[T]) {
	if p := recover(); p != nil {
		*resp = fail[T](fmt.Errorf("%w: %v", common.ErrInternal, p))
	}
}
