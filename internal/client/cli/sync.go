package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dropsync/internal/client/models"
)

// Sync drains the pending queue.
func (a *App) Sync(ctx context.Context) error {
	res, err := a.engine.Drain(ctx)
	if err != nil {
		if res.Replayed > 0 {
			fmt.Fprintf(a.out, "%d operasi terkirim sebelum gagal, %d tersisa\n", res.Replayed, res.Remaining)
		}
		return err
	}
	if res.Skipped {
		fmt.Fprintln(a.out, "Sinkronisasi sedang berjalan")
		return nil
	}
	fmt.Fprintf(a.out, "Sinkronisasi selesai: %d operasi terkirim\n", res.Replayed)
	return nil
}

// Pull refreshes local copies from the backend, for one kind or all.
func (a *App) Pull(ctx context.Context, args []string) error {
	kinds := models.Kinds
	if len(args) > 0 {
		k, err := models.ParseKind(args[0])
		if err != nil {
			return err
		}
		kinds = []models.Kind{k}
	}
	for _, k := range kinds {
		n, err := a.engine.PullFromServer(ctx, k)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: %d data diperbarui\n", kindLabel(k), n)
	}
	return nil
}

// ForceSync pulls everything and then drains the queue.
func (a *App) ForceSync(ctx context.Context) error {
	res, err := a.engine.ForceSync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sinkronisasi penuh selesai: %d operasi terkirim\n", res.Replayed)
	return nil
}

// Status prints connectivity and queue state.
func (a *App) Status(ctx context.Context) error {
	st, err := a.engine.Status(ctx)
	if err != nil {
		return err
	}
	printStatus(a.out, st)
	return nil
}
