package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/dropsync/internal/client/models"
)

var errUsage = errors.New("argumen kurang")

// kindArg parses args[0] as a record kind and returns the rest.
func kindArg(args []string) (models.Kind, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: jenis (baru/lama) wajib diisi", errUsage)
	}
	k, err := models.ParseKind(args[0])
	if err != nil {
		return "", nil, err
	}
	return k, args[1:], nil
}

func kindAndID(args []string) (models.Kind, string, error) {
	k, rest, err := kindArg(args)
	if err != nil {
		return "", "", err
	}
	if len(rest) == 0 {
		return "", "", fmt.Errorf("%w: id wajib diisi", errUsage)
	}
	return k, rest[0], nil
}

// askPhoto asks for an optional photo path and resolves it to a reference.
func (a *App) askPhoto(ctx context.Context) (*string, error) {
	path, err := getSimpleText(a.reader, "Foto (path file, kosongkan jika tidak ada)", a.out)
	if err != nil || path == "" {
		return nil, err
	}
	ref, err := a.photos.Attach(ctx, path)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (a *App) askAmount(prompt string) (float64, error) {
	s, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return 0, err
	}
	return ParseAmount(s)
}

// askOptionalAmount returns nil when the user leaves the answer empty.
func (a *App) askOptionalAmount(prompt string) (*float64, error) {
	s, err := getSimpleText(a.reader, prompt+" (kosongkan jika tetap)", a.out)
	if err != nil || s == "" {
		return nil, err
	}
	v, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (a *App) askOptionalText(prompt string) (*string, error) {
	s, err := getSimpleText(a.reader, prompt+" (kosongkan jika tetap)", a.out)
	if err != nil || s == "" {
		return nil, err
	}
	return &s, nil
}

// AddNewLoan captures a new-loan record.
func (a *App) AddNewLoan(ctx context.Context) error {
	var in models.NewLoanInput
	var err error

	if in.Name, err = getSimpleText(a.reader, "Nama nasabah", a.out); err != nil {
		return err
	}
	if in.Address, err = getSimpleText(a.reader, "Alamat", a.out); err != nil {
		return err
	}
	if in.Principal, err = a.askAmount("Pinjaman (contoh 1.000.000)"); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if in.Photo, err = a.askPhoto(ctx); err != nil {
		return err
	}
	return a.create(ctx, models.KindNewLoan, in)
}

// AddExistingLoan captures an existing-loan record.
func (a *App) AddExistingLoan(ctx context.Context) error {
	var in models.ExistingLoanInput
	var err error

	if in.Name, err = getSimpleText(a.reader, "Nama nasabah", a.out); err != nil {
		return err
	}
	if in.Address, err = getSimpleText(a.reader, "Alamat", a.out); err != nil {
		return err
	}
	if in.Balance, err = a.askAmount("Saldo"); err != nil {
		return err
	}
	if in.Installment, err = a.askAmount("Angsuran"); err != nil {
		return err
	}
	if in.Savings, err = a.askAmount("Tabungan"); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if in.Photo, err = a.askPhoto(ctx); err != nil {
		return err
	}
	return a.create(ctx, models.KindExistingLoan, in)
}

func (a *App) create(ctx context.Context, kind models.Kind, draft models.Draft) error {
	svc, err := a.service(kind)
	if err != nil {
		return err
	}
	resp := svc.Create(ctx, draft)
	if !resp.Success() {
		return resp.Err
	}
	fmt.Fprintln(a.out, resp.Message())
	printRecord(a.out, kind, resp.Data)
	return nil
}

// List prints every record of a kind, or of both kinds with "semua".
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) > 0 && (args[0] == "semua" || args[0] == "all") {
		return a.ListAll(ctx, strings.Join(args[1:], " "))
	}
	kind, _, err := kindArg(args)
	if err != nil {
		return err
	}
	svc, err := a.service(kind)
	if err != nil {
		return err
	}
	resp := svc.GetList(ctx)
	if !resp.Success() {
		return resp.Err
	}
	if len(resp.Data) == 0 {
		fmt.Fprintln(a.out, "Belum ada data")
		return nil
	}
	for _, r := range resp.Data {
		printSummary(a.out, kind, r)
	}
	return nil
}

type customer struct {
	kind models.Kind
	rec  *models.Record
}

// ListAll prints the customers of both kinds newest first. A non-empty query
// keeps those whose name contains it, ignoring case.
func (a *App) ListAll(ctx context.Context, query string) error {
	query = strings.ToLower(strings.TrimSpace(query))

	var all []customer
	for _, k := range models.Kinds {
		svc, err := a.service(k)
		if err != nil {
			return err
		}
		resp := svc.GetList(ctx)
		if !resp.Success() {
			return resp.Err
		}
		for _, r := range resp.Data {
			if query != "" && !strings.Contains(strings.ToLower(r.Name), query) {
				continue
			}
			all = append(all, customer{kind: k, rec: r})
		}
	}
	if len(all) == 0 {
		fmt.Fprintln(a.out, "Belum ada data")
		return nil
	}

	slices.SortStableFunc(all, func(x, y customer) int {
		return strings.Compare(y.rec.CreatedAt, x.rec.CreatedAt)
	})
	for _, c := range all {
		fmt.Fprintf(a.out, "%-10s ", kindLabel(c.kind))
		printSummary(a.out, c.kind, c.rec)
	}
	return nil
}

// Show prints one record.
func (a *App) Show(ctx context.Context, args []string) error {
	kind, id, err := kindAndID(args)
	if err != nil {
		return err
	}
	svc, err := a.service(kind)
	if err != nil {
		return err
	}
	resp := svc.GetByID(ctx, id)
	if !resp.Success() {
		return resp.Err
	}
	printRecord(a.out, kind, resp.Data)
	return nil
}

// Update asks for each editable field; empty answers leave it unchanged.
func (a *App) Update(ctx context.Context, args []string) error {
	kind, id, err := kindAndID(args)
	if err != nil {
		return err
	}
	svc, err := a.service(kind)
	if err != nil {
		return err
	}

	var p models.Patch
	if p.Name, err = a.askOptionalText("Nama nasabah"); err != nil {
		return err
	}
	if p.Address, err = a.askOptionalText("Alamat"); err != nil {
		return err
	}
	switch kind {
	case models.KindNewLoan:
		if p.Principal, err = a.askOptionalAmount("Pinjaman"); err != nil {
			return err
		}
	case models.KindExistingLoan:
		if p.Balance, err = a.askOptionalAmount("Saldo"); err != nil {
			return err
		}
		if p.Installment, err = a.askOptionalAmount("Angsuran"); err != nil {
			return err
		}
		if p.Savings, err = a.askOptionalAmount("Tabungan"); err != nil {
			return err
		}
	}
	if p.Empty() {
		fmt.Fprintln(a.out, "Tidak ada perubahan")
		return nil
	}

	resp := svc.Update(ctx, id, p)
	if !resp.Success() {
		return resp.Err
	}
	fmt.Fprintln(a.out, resp.Message())
	printRecord(a.out, kind, resp.Data)
	return nil
}

// Delete removes a record.
func (a *App) Delete(ctx context.Context, args []string) error {
	kind, id, err := kindAndID(args)
	if err != nil {
		return err
	}
	svc, err := a.service(kind)
	if err != nil {
		return err
	}
	resp := svc.Delete(ctx, id)
	if !resp.Success() {
		return resp.Err
	}
	fmt.Fprintln(a.out, resp.Message())
	return nil
}

// Unsynced lists local rows that still wait for the backend.
func (a *App) Unsynced(ctx context.Context, args []string) error {
	kind, _, err := kindArg(args)
	if err != nil {
		return err
	}
	sess, err := a.sessions.CurrentUser(ctx)
	if err != nil {
		return err
	}
	recs, err := a.local.GetUnsynced(ctx, kind, sess.UserID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "Semua data sudah tersinkron")
		return nil
	}
	for _, r := range recs {
		printSummary(a.out, kind, r)
	}
	return nil
}
