package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. Shell satisfies
// it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Create(ctx context.Context, args []string) error
	Read(ctx context.Context, args []string) error
	Write(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Open(ctx context.Context, args []string) error
	Close(ctx context.Context, args []string) error
	Opened(ctx context.Context) error
	Share(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Status(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: create, read, write, delete, open, close, opened, share, (l)ist, status, logout, exit"
)

// runREPL reads one command per line from reader and dispatches it to a.
// The first token is the command, the rest are its arguments. File commands
// are refused until a user is logged in. Handler errors are ignored here;
// handlers report their own failures. The loop ends on EOF, on "exit" or
// "quit", or when ctx is done.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}

		fmt.Fprintf(w, "sfs %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			fmt.Fprintln(w)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		// single-name commands take the rest of the line verbatim
		var name []string
		if rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd)); rest != "" {
			name = []string{rest}
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpLoggedIn)
			} else {
				fmt.Fprintln(w, helpLoggedOut)
			}
			continue

		case "register":
			_ = a.Register(ctx)
			continue

		case "login":
			_ = a.Login(ctx)
			continue

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		}

		if !a.isLoggedIn() {
			fmt.Fprintln(w, "Please login first (type 'help' for commands)")
			continue
		}

		switch cmd {
		case "create":
			_ = a.Create(ctx, name)
		case "read":
			_ = a.Read(ctx, name)
		case "write":
			_ = a.Write(ctx, name)
		case "delete":
			_ = a.Delete(ctx, name)
		case "open":
			_ = a.Open(ctx, name)
		case "close":
			_ = a.Close(ctx, name)
		case "opened":
			_ = a.Opened(ctx)
		case "share":
			_ = a.Share(ctx, args)
		case "l", "list":
			_ = a.List(ctx)
		case "status":
			_ = a.Status(ctx)
		case "logout":
			_ = a.Logout(ctx)
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
