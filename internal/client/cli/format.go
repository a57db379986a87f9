package cli

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/common"
)

func kindLabel(k models.Kind) string {
	switch k {
	case models.KindNewLoan:
		return "Drop baru"
	case models.KindExistingLoan:
		return "Drop lama"
	}
	return string(k)
}

func syncMark(r *models.Record) string {
	if r.Synced {
		return "tersinkron"
	}
	return "menunggu sinkron"
}

func amount(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatAmount(*v)
}

func printSummary(w io.Writer, kind models.Kind, r *models.Record) {
	figure := r.Balance
	if kind == models.KindNewLoan {
		figure = r.Principal
	}
	fmt.Fprintf(w, "%s  %-20s %15s  [%s]\n", r.ID, r.Name, amount(figure), syncMark(r))
}

func printRecord(w io.Writer, kind models.Kind, r *models.Record) {
	fmt.Fprintf(w, "%s %s\n", kindLabel(kind), r.ID)
	fmt.Fprintf(w, "  Nama:      %s\n", r.Name)
	fmt.Fprintf(w, "  Alamat:    %s\n", r.Address)
	if kind == models.KindNewLoan {
		fmt.Fprintf(w, "  Pinjaman:  %s\n", amount(r.Principal))
	}
	fmt.Fprintf(w, "  Saldo:     %s\n", amount(r.Balance))
	fmt.Fprintf(w, "  Angsuran:  %s\n", amount(r.Installment))
	fmt.Fprintf(w, "  Tabungan:  %s\n", amount(r.Savings))
	if r.Photo != nil {
		fmt.Fprintf(w, "  Foto:      %s\n", *r.Photo)
	}
	fmt.Fprintf(w, "  Dibuat:    %s\n", r.CreatedAt)
	fmt.Fprintf(w, "  Status:    %s\n", syncMark(r))
}

func printStatus(w io.Writer, st models.SyncStatus) {
	conn := "offline"
	if st.Online {
		conn = "online"
	}
	fmt.Fprintf(w, "Koneksi:   %s (%s)\n", conn, st.Transport)
	fmt.Fprintf(w, "Antrian:   %d operasi\n", st.PendingOperations)
	for _, k := range models.Kinds {
		fmt.Fprintf(w, "  %s: %d\n", kindLabel(k), st.PendingByKind[k])
	}
	if st.HeldOperations > 0 {
		fmt.Fprintf(w, "  milik pengguna lain: %d\n", st.HeldOperations)
	}
	last := "belum pernah"
	if st.LastSync != nil {
		last = common.FormatTimestamp(*st.LastSync)
	}
	fmt.Fprintf(w, "Sinkron terakhir: %s\n", last)
	if st.Draining {
		fmt.Fprintln(w, "Sinkronisasi sedang berjalan")
	}
}
