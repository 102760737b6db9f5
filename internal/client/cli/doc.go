// Package cli provides the interactive Book Explorer command-line client.
//
// It wires configuration, the local session database, the REST gateway and
// the client services, then runs a REPL over them. Typical flow: log in,
// list and filter books, open one, and write, update or delete the note on
// it.
//
// Changing the search term, sort key, author filter or page re-fetches the
// listing. A failed fetch keeps the previous listing on screen.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
