package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"
)

// ErrNotLoggedIn is returned by commands that need a saved session.
var ErrNotLoggedIn = errors.New("not logged in (run the login command first)")

// LoginCommand signs in and saves the session token locally.
type LoginCommand struct {
	storeFlags
	Email    string
	Password string
}

func NewLoginCommand() *LoginCommand {
	return &LoginCommand{}
}

func (cmd *LoginCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.Email, "email", "", "Account email (required)")
	fs.StringVar(&cmd.Password, "password", "", "Account password (required)")
	fs.Usage = usage(fs, "login -email <email> -password <password>",
		"Log in to the book review backend. The token is stored encrypted in the local database.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Email == "" || cmd.Password == "" {
		return fmt.Errorf("required flags -email and -password not provided")
	}
	return nil
}

func (cmd *LoginCommand) Run(ctx context.Context) error {
	stores, err := cmd.open(ctx)
	if err != nil {
		return err
	}
	defer closeStores(stores)

	user, err := stores.Session.Login(ctx, cmd.Email, cmd.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	cmd.printf("Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

// RegisterCommand creates an account and signs in with it.
type RegisterCommand struct {
	storeFlags
	Name     string
	Email    string
	Password string
}

func NewRegisterCommand() *RegisterCommand {
	return &RegisterCommand{}
}

func (cmd *RegisterCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.Name, "name", "", "Display name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Account email (required)")
	fs.StringVar(&cmd.Password, "password", "", "Account password (required)")
	fs.Usage = usage(fs, "register -name <name> -email <email> -password <password>",
		"Create an account on the book review backend and log in with it.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Name == "" || cmd.Email == "" || cmd.Password == "" {
		return fmt.Errorf("required flags -name, -email and -password not provided")
	}
	return nil
}

func (cmd *RegisterCommand) Run(ctx context.Context) error {
	stores, err := cmd.open(ctx)
	if err != nil {
		return err
	}
	defer closeStores(stores)

	user, err := stores.Session.Register(ctx, cmd.Name, cmd.Email, cmd.Password)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	cmd.printf("Account created. Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

// LogoutCommand forgets the saved token. The backend is not contacted.
type LogoutCommand struct {
	storeFlags
}

func NewLogoutCommand() *LogoutCommand {
	return &LogoutCommand{}
}

func (cmd *LogoutCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	cmd.register(fs)
	fs.Usage = usage(fs, "logout", "Remove the saved session token.")
	return fs.Parse(args)
}

func (cmd *LogoutCommand) Run(ctx context.Context) error {
	stores, err := cmd.open(ctx)
	if err != nil {
		return err
	}
	defer closeStores(stores)

	stores.Session.Logout()
	cmd.printf("Logged out\n")
	return nil
}

// WhoamiCommand prints the profile of the saved session.
type WhoamiCommand struct {
	storeFlags
}

func NewWhoamiCommand() *WhoamiCommand {
	return &WhoamiCommand{}
}

func (cmd *WhoamiCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	cmd.register(fs)
	fs.Usage = usage(fs, "whoami", "Show the logged-in user.")
	return fs.Parse(args)
}

func (cmd *WhoamiCommand) Run(ctx context.Context) error {
	stores, err := cmd.open(ctx)
	if err != nil {
		return err
	}
	defer closeStores(stores)

	user := stores.Session.User()
	if user == nil {
		return ErrNotLoggedIn
	}

	cmd.printf("%s <%s>\n", user.Name, user.Email)
	if user.Bio != "" {
		cmd.printf("%s\n", user.Bio)
	}
	if exp, ok := stores.Session.TokenExpiry(); ok {
		cmd.printf("Session expires %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}
