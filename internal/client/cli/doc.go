// Package cli provides the interactive Masa command-line client.
//
// It wires configuration, the local session database, the HTTP gateway and
// the account service, then runs a REPL. Registration and password reset
// are wizards driven by their workflow controllers: the CLI only prompts,
// feeds answers in and prints the resulting snapshot.
//
// Key features:
//   - Register with mobile and email verification, then an optional avatar
//   - Finish a social login, registering the account when it is new
//   - Login / Logout / WhoAmI
//   - Profile edits (name, avatar)
//   - Password reset by mobile
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
