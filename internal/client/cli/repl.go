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
	Social(ctx context.Context) error
	Login(ctx context.Context) error
	Reset(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Logout(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, social, login, reset, exit"
	helpLoggedIn  = "Available commands: whoami, profile, password, delete-account, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the Masa CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help           — show available commands
//	  - register       — create an account and verify it
//	  - social         — finish a social login with its code
//	  - login          — authenticate
//	  - reset          — reset a forgotten password by mobile or email
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - whoami         — refresh and show the current session
//	  - profile        — change name or avatar
//	  - password       — change the password
//	  - delete-account — archive the account and log out
//	  - logout         — log out
//	  - exit | quit    — leave the program
//
// Errors returned by handlers are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("masa %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			err = a.Register(ctx)

		case "social":
			err = a.Social(ctx)

		case "login":
			err = a.Login(ctx)

		case "reset":
			err = a.Reset(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "profile":
			err = a.Profile(ctx)

		case "password":
			err = a.ChangePassword(ctx)

		case "delete-account":
			err = a.DeleteAccount(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
