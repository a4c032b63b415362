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
	WhoAmI(ctx context.Context) error
	Upload(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Set(ctx context.Context, args []string) error
	ClearLogo(ctx context.Context) error
	New(ctx context.Context) error
	Show(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the CarVault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn). The record commands
// work anonymously too; uploads then fail with the log-in hint.
//
//	Always:
//	  - help                          show available commands
//	  - whoami                        print the session principal
//	  - set id|name|model|approved v  edit a record field
//	  - upload <field> <path>...      upload files into logo, images or documents
//	  - remove image|document <key>   drop an uploaded key
//	  - clearlogo                     drop the logo
//	  - show                          print the record
//	  - new                           discard the record
//	  - exit | quit                   leave the program
//
//	Not logged in:
//	  - register, login
//
//	Logged in:
//	  - logout
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("carvault %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, set, upload, remove, clearlogo, show, new, logout, exit")
			} else {
				printlnFn("Available commands: register, login, whoami, set, upload, remove, clearlogo, show, new, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "set":
			err = a.Set(ctx, args)

		case "upload":
			err = a.Upload(ctx, args)

		case "remove", "rm":
			err = a.Remove(ctx, args)

		case "clearlogo":
			err = a.ClearLogo(ctx)

		case "show":
			err = a.Show(ctx)

		case "new":
			err = a.New(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", err)
		}
	}
}
