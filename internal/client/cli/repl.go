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

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isPrivileged() bool

	RequestAccount(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	Conversations(ctx context.Context) error
	NewConversation(ctx context.Context, title string) error
	UseConversation(ctx context.Context, arg string) error
	History(ctx context.Context) error

	Ask(ctx context.Context, question string) error
	Card(ctx context.Context, args []string) error
	Insight(ctx context.Context, arg string) error

	SearchCards(ctx context.Context, query string) error
	Complete(ctx context.Context, prefix string) error
	Scryfall(ctx context.Context, query string) error
	Board(ctx context.Context, args []string) error

	Tone(ctx context.Context, args []string) error
	Detail(ctx context.Context, args []string) error
	Model(ctx context.Context, args []string) error
	Models(ctx context.Context, args []string) error
	Users(ctx context.Context, args []string) error

	Requests(ctx context.Context) error
	Approve(ctx context.Context, arg string) error
	Deny(ctx context.Context, arg string) error

	Profile(ctx context.Context) error
	Assess(ctx context.Context) error
	Export(ctx context.Context) error
}

const (
	helpGuest = "Available commands: request, login, tone, detail, exit"
	helpUser  = "Available commands: convs, new <title>, use <id>, history, ask <question>, card add|rm <name|#n>, " +
		"search <text>, complete <text>, scryfall <query>, insight [n], board list|show|save|check|analyze|rm, " +
		"tone [n], detail [n], model [set <name>|clear], models, profile, assess, export, logout, exit"
	helpAdmin = "Admin commands: requests, approve <id>, deny <id>, models use <name>, users [set <id> <model>|clear <id>]"
)

// guestCommands may run without a session.
var guestCommands = map[string]bool{
	"help": true, "request": true, "login": true, "tone": true, "detail": true, "exit": true, "quit": true,
}

// runREPL starts a read-eval-print loop for the Melvin CLI.
//
// It reads a line, parses the first token as the command and the rest as
// its arguments, and dispatches to methods on a. The loop exits on EOF or
// when the user types "exit" or "quit".
//
// Errors returned by command handlers are not fatal; handlers report their
// own failures, and this loop only prints what they left unreported.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("melvin %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		rest = strings.TrimSpace(rest)
		args := strings.Fields(rest)
		if cmd == "" {
			continue
		}

		if !guestCommands[cmd] && !a.isLoggedIn() {
			printlnFn("Please log in first.")
			continue
		}

		var cmdErr error
		switch cmd {
		case "help":
			switch {
			case !a.isLoggedIn():
				printlnFn(helpGuest)
			case a.isPrivileged():
				printlnFn(helpUser)
				printlnFn(helpAdmin)
			default:
				printlnFn(helpUser)
			}

		case "request":
			cmdErr = a.RequestAccount(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)

		case "convs":
			cmdErr = a.Conversations(ctx)
		case "new":
			cmdErr = a.NewConversation(ctx, rest)
		case "use":
			cmdErr = a.UseConversation(ctx, rest)
		case "history":
			cmdErr = a.History(ctx)

		case "ask":
			cmdErr = a.Ask(ctx, rest)
		case "card":
			cmdErr = a.Card(ctx, args)
		case "cards":
			cmdErr = a.Card(ctx, nil)
		case "insight":
			cmdErr = a.Insight(ctx, rest)

		case "search":
			cmdErr = a.SearchCards(ctx, rest)
		case "complete":
			cmdErr = a.Complete(ctx, rest)
		case "scryfall":
			cmdErr = a.Scryfall(ctx, rest)
		case "board":
			cmdErr = a.Board(ctx, args)

		case "tone":
			cmdErr = a.Tone(ctx, args)
		case "detail":
			cmdErr = a.Detail(ctx, args)
		case "model":
			cmdErr = a.Model(ctx, args)
		case "models":
			cmdErr = a.Models(ctx, args)
		case "users":
			cmdErr = a.Users(ctx, args)

		case "requests":
			cmdErr = a.Requests(ctx)
		case "approve":
			cmdErr = a.Approve(ctx, rest)
		case "deny":
			cmdErr = a.Deny(ctx, rest)

		case "profile":
			cmdErr = a.Profile(ctx)
		case "assess":
			cmdErr = a.Assess(ctx)
		case "export":
			cmdErr = a.Export(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		var usage *usageError
		if errors.As(cmdErr, &usage) {
			printlnFn("Usage:", usage.usage)
		}
	}
}

// usageError reports a malformed command line.
type usageError struct {
	usage string
}

func (e *usageError) Error() string {
	return "usage: " + e.usage
}

func usage(u string) error {
	return &usageError{usage: u}
}
