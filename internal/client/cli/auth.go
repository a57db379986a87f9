package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username and password and creates an account.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Masukkan username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registrasi berhasil")
	return nil
}

// Login prompts for credentials and authenticates online, falling back to
// the cached verifier when the server is unavailable. The resulting mode is
// online, offline or disabled when both attempts fail.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Masukkan username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.authService.OnlineLogin(ctx, userName, password)
	switch {
	case err == nil:
		a.log.Info(ctx, "login successful", "user", userName)
		a.setSession(sess)
		a.setMode(ModeOnline)
		return nil
	case errors.Is(err, client.ErrUnavailable):
		a.log.Warn(ctx, "server unavailable, trying offline login")
		sess, err = a.authService.OfflineLogin(ctx, userName, password)
		if err != nil {
			a.setMode(ModeDisabled)
			return fmt.Errorf("login offline gagal: %w", err)
		}
		a.log.Info(ctx, "offline login successful", "user", userName)
		a.setSession(sess)
		a.setMode(ModeOffline)
		return nil
	default:
		return fmt.Errorf("login gagal: %w", err)
	}
}

// Logout forgets the session. Local records and queued operations stay.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.setSession(nil)
	fmt.Fprintln(a.out, "Anda telah logout")
	return nil
}
