package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	AddNewLoan(ctx context.Context) error
	AddExistingLoan(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Update(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Unsynced(ctx context.Context, args []string) error

	Sync(ctx context.Context) error
	Pull(ctx context.Context, args []string) error
	ForceSync(ctx context.Context) error
	Status(ctx context.Context) error
}

const (
	helpLoggedOut = "Perintah: register, login, exit"
	helpLoggedIn  = "Perintah: baru, lama, list <jenis>, list semua [nama], show <jenis> <id>, update <jenis> <id>, " +
		"delete <jenis> <id>, unsynced <jenis>, sync, pull [jenis], force-sync, status, logout, exit\n" +
		"Jenis: baru (drop baru) atau lama (drop lama)"
)

// runREPL starts a simple read–eval–print loop for the field client.
//
// It reads a line from the provided scanner, parses the first token as the
// command and dispatches to methods on 'a' with the remaining tokens as
// arguments. Record commands are refused until a session exists. The loop
// exits on scanner EOF or when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("dropsync %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "exit", "quit":
			printlnFn("Sampai jumpa!")
			return
		default:
			if !a.isLoggedIn() {
				if isRecordCommand(cmd) {
					printlnFn("Silakan login terlebih dahulu")
				} else {
					printlnFn("Perintah tidak dikenal:", cmd)
				}
				continue
			}
			err = dispatch(ctx, a, cmd, args)
		}
		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}

var recordCommands = map[string]bool{
	"logout": true, "baru": true, "lama": true, "list": true, "l": true, "show": true,
	"update": true, "delete": true, "unsynced": true, "sync": true, "pull": true,
	"force-sync": true, "status": true,
}

func isRecordCommand(cmd string) bool { return recordCommands[cmd] }

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "baru":
		return a.AddNewLoan(ctx)
	case "lama":
		return a.AddExistingLoan(ctx)
	case "l", "list":
		return a.List(ctx, args)
	case "show":
		return a.Show(ctx, args)
	case "update":
		return a.Update(ctx, args)
	case "delete":
		return a.Delete(ctx, args)
	case "unsynced":
		return a.Unsynced(ctx, args)
	case "sync":
		return a.Sync(ctx)
	case "pull":
		return a.Pull(ctx, args)
	case "force-sync":
		return a.ForceSync(ctx)
	case "status":
		return a.Status(ctx)
	}
	printlnFn("Perintah tidak dikenal:", cmd)
	return nil
}
