// Package cli provides the interactive CarVault command-line client.
//
// It wires configuration, the local delegation store, the session and the
// record controller, then either runs one command (login, logout, register,
// whoami, upload) or drops into a REPL that edits a single car record.
//
// Typical REPL flow: log in, set the record's name and model, upload a logo,
// images and documents, then show the record. A background watcher pings the
// asset store and switches the prompt between online and offline.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
