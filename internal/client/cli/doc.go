// Package cli provides the interactive field client.
//
// It wires configuration, the local database, the remote client, the record
// services and the sync engine behind a small REPL that keeps working while
// offline. Typical flow: resume or prompt for a session, start the
// connectivity watcher, then execute commands until the user exits.
//
// Commands:
//   - register, login, logout
//   - baru, lama            capture a new-loan or existing-loan record
//   - list, show, update, delete, unsynced <kind> [id]
//   - sync, pull, force-sync, status
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
