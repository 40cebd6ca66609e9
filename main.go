package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/bookclub/internal/cli"
	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run(ctx context.Context) error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "login":
		cmd = cli.NewLoginCommand()
	case "register":
		cmd = cli.NewRegisterCommand()
	case "logout":
		cmd = cli.NewLogoutCommand()
	case "whoami":
		cmd = cli.NewWhoamiCommand()
	case "books":
		cmd = cli.NewBooksCommand()
	case "review":
		cmd = cli.NewReviewCommand()
	case "version":
		fmt.Printf("bookclub %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.Run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve      Start the web server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  login      Log in and save the session token\n")
	fmt.Fprintf(os.Stderr, "  register   Create an account and log in\n")
	fmt.Fprintf(os.Stderr, "  logout     Forget the saved session token\n")
	fmt.Fprintf(os.Stderr, "  whoami     Show the logged-in user\n")
	fmt.Fprintf(os.Stderr, "  books      List books or show one book\n")
	fmt.Fprintf(os.Stderr, "  review     Add a review to a book\n")
	fmt.Fprintf(os.Stderr, "  version    Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
