package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/bookexplorer/internal/client/client"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool

	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context, args []string) error
	Refresh(ctx context.Context, args []string) error

	Books(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Sort(ctx context.Context, args []string) error
	Author(ctx context.Context, args []string) error
	Authors(ctx context.Context, args []string) error
	Page(ctx context.Context, args []string) error
	Open(ctx context.Context, args []string) error

	ShowNote(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Save(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	MyNotes(ctx context.Context, args []string) error
}

const (
	guestHelp = "Available commands: register, login, books, search, sort, author, authors, page, open, exit"
	userHelp  = "Available commands: books, search, sort, author, authors, page, open, note, edit, save, delete, mynotes, whoami, refresh, logout, exit"
)

// runREPL reads commands from reader until EOF or "exit"/"quit".
//
// The first token of a line is the command, the rest are its arguments.
// Commands share reader with the REPL so that their prompts consume the
// following lines. An error returned by a command is printed with the
// message reported by the remote store, and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	commands := map[string]func(context.Context, []string) error{
		"register": a.Register,
		"login":    a.Login,
		"logout":   a.Logout,
		"whoami":   a.WhoAmI,
		"refresh":  a.Refresh,
		"books":    a.Books,
		"l":        a.Books,
		"search":   a.Search,
		"sort":     a.Sort,
		"author":   a.Author,
		"authors":  a.Authors,
		"page":     a.Page,
		"open":     a.Open,
		"note":     a.ShowNote,
		"edit":     a.Edit,
		"save":     a.Save,
		"delete":   a.Delete,
		"mynotes":  a.MyNotes,
	}

	for {
		printlnFn(fmt.Sprintf("bx %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				printlnFn(userHelp)
			} else {
				printlnFn(guestHelp)
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		fn, ok := commands[cmd]
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if err := fn(ctx, args); err != nil {
			printlnFn("Error:", client.Message(err))
		}
	}
}
