package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/entrypoint"
)

// storeFlags are the options every command that talks to the backend shares.
// Unset flags fall back to the environment.
type storeFlags struct {
	DatabasePath string
	APIURL       string

	// Out receives command output; nil means stdout.
	Out io.Writer
}

func (f *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.DatabasePath, "db", "", "Path to the local database holding the saved session (default: $DATABASE_PATH or "+config.DefaultDatabasePath+")")
	fs.StringVar(&f.APIURL, "api", "", "Backend API base URL (default: $NEXT_PUBLIC_API_URL or "+config.DefaultAPIURL+")")
}

func (f *storeFlags) out() io.Writer {
	if f.Out == nil {
		return os.Stdout
	}
	return f.Out
}

func (f *storeFlags) printf(format string, args ...any) {
	fmt.Fprintf(f.out(), format, args...)
}

// open builds the stores and restores the saved session. The catalog is
// left empty; commands fetch what they need.
func (f *storeFlags) open(ctx context.Context) (*entrypoint.Stores, error) {
	cfg := config.NewConfig()
	if f.DatabasePath != "" {
		cfg.Database.Path = f.DatabasePath
	}
	if f.APIURL != "" {
		cfg.API.BaseURL = f.APIURL
	}

	stores, err := entrypoint.OpenStores(cfg, nil)
	if err != nil {
		return nil, err
	}
	stores.Session.Initialize(ctx)
	return stores, nil
}

func usage(fs *flag.FlagSet, synopsis, description string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s\n\n", os.Args[0], synopsis)
		fmt.Fprintf(os.Stderr, "%s\n\n", description)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
}

func closeStores(stores *entrypoint.Stores) {
	if err := stores.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}
