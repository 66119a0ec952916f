package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
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
	Send(ctx context.Context, args []string) error
	Get(ctx context.Context) error
	History(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the GophMail CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, on context cancellation, or when the user
// types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help                 : show available commands
//	  - register             : create an account
//	  - login                : authenticate
//	  - exit | quit          : leave the program
//
//	Logged in:
//	  - help                 : show available commands
//	  - send [user [text]]   : send a message
//	  - get                  : fetch new messages
//	  - history [count]      : show received messages
//	  - logout               : log out
//	  - exit | quit          : leave the program
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("gm%s> ", prefixSpace(statusFn())))

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
			if a.isLoggedIn() {
				printlnFn("Available commands: send [user [text]], get, history [count], logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "send":
			_ = a.Send(ctx, args)

		case "get":
			_ = a.Get(ctx)

		case "history":
			_ = a.History(ctx, args)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func prefixSpace(s string) string {
	if s == "" {
		return ""
	}
	return " " + s
}
