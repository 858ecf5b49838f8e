package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL drives. App satisfies it; tests
// provide a lightweight stub.
type execIface interface {
	isSignedIn() bool
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	ShowText(ctx context.Context) error
	Edit(ctx context.Context, text string) error
	ListFiles(ctx context.Context) error
	Drop(ctx context.Context, paths []string) error
	Add(ctx context.Context, paths []string) error
	Clear(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: signin, help, exit"
	helpSignedIn  = "Available commands: whoami, text, edit <text>, files, drop <paths...>, add <paths...>, clear, signout, help, exit"
)

// runREPL reads commands from scanner until the input ends or the user
// types exit or quit.
//
//	Signed out:
//	  - signin           open the sign-in page and wait for it to finish
//	  - help | exit | quit
//
//	Signed in:
//	  - whoami           show the signed-in user
//	  - text             show the synchronized text
//	  - edit [text]      replace the text; without an argument read lines
//	                     until an empty one
//	  - files            list uploaded files
//	  - drop <paths...>  replace all files with the given ones
//	  - add <paths...>   upload the given files next to the existing ones
//	  - clear            delete every file after a confirmation
//	  - signout
//	  - help | exit | quit
//
// Errors returned by the commands are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner, w io.Writer) {
	for {
		fmt.Fprintf(w, "sendit%s> ", statusFn())
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return
		}
		line := strings.TrimSpace(scanner.Text())
		cmd, rest, _ := strings.Cut(line, " ")
		if cmd == "" {
			continue
		}
		args := strings.Fields(rest)

		var err error
		switch cmd {
		case "help":
			if a.isSignedIn() {
				fmt.Fprintln(w, helpSignedIn)
			} else {
				fmt.Fprintln(w, helpSignedOut)
			}

		case "signin":
			err = a.SignIn(ctx)

		case "signout":
			err = a.SignOut(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "text":
			err = a.ShowText(ctx)

		case "edit":
			text := strings.TrimSpace(rest)
			if text == "" {
				text = GetMultiline(scanner, "Enter text", w)
			}
			err = a.Edit(ctx, text)

		case "files", "ls":
			err = a.ListFiles(ctx)

		case "drop":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: drop <paths...>")
				continue
			}
			err = a.Drop(ctx, args)

		case "add":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: add <paths...>")
				continue
			}
			err = a.Add(ctx, args)

		case "clear":
			if !Confirm(scanner, "Delete all files?", w) {
				continue
			}
			err = a.Clear(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(w, "error:", err)
		}
	}
}
