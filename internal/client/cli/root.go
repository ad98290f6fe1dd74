package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if username := a.state.Username(); username != "" {
		return fmt.Sprintf("(%s)", username)
	}
	return ""
}

// Root runs the command loop until EOF or an explicit exit.
func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to Noodle Vault (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("nv %s> ", a.getStatus())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: list, show <site>, copy <site>, add, update, delete <site>, sync, logout, exit")
			} else {
				fmt.Println("Available commands: login, signup, forgot, exit")
			}

		case "login":
			_ = a.Login(ctx)
		case "signup":
			_ = a.SignUp(ctx)
		case "forgot":
			_ = a.Forgot(ctx)
		case "logout":
			_ = a.Logout(ctx)

		case "l", "list":
			a.list(ctx)
		case "show":
			if len(args) == 0 {
				fmt.Println("Usage: show <website>")
				continue
			}
			a.show(ctx, args[0])
		case "copy":
			if len(args) == 0 {
				fmt.Println("Usage: copy <website>")
				continue
			}
			a.copy(ctx, args[0])
		case "add":
			a.add(ctx)
		case "update":
			a.update(ctx)
		case "delete":
			if len(args) == 0 {
				fmt.Println("Usage: delete <website>")
				continue
			}
			a.delete(ctx, args[0])
		case "sync":
			a.runSync(ctx)

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
