package entrypoint

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/bookclub/internal/bookapi"
	"github.com/mrlokans/bookclub/internal/catalog"
	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/metrics"
	"github.com/mrlokans/bookclub/internal/session"
	"github.com/mrlokans/bookclub/internal/tokenstore"
)

// Stores is the state shared by the web server and the CLI: the local
// database, the backend client and the two stores on top of it.
type Stores struct {
	DB      *database.Database
	Client  *bookapi.Client
	Session *session.Store
	Catalog *catalog.Store
}

// OpenStores wires the stores from configuration. The session is not
// initialized; callers decide when to restore it.
// m may be nil.
func OpenStores(cfg *config.Config, m *metrics.Collector, catalogOpts ...catalog.Option) (*Stores, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	tokens, err := tokenstore.New(db, tokenstore.Config{
		EncryptionKey: cfg.Tokens.EncryptionKey,
		KeyFilePath:   cfg.Tokens.KeyFilePath,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}

	clientOpts := []bookapi.Option{bookapi.WithTimeout(cfg.API.Timeout)}
	if m != nil {
		clientOpts = append(clientOpts, bookapi.WithMetrics(m))
	}
	client := bookapi.NewClient(cfg.API.BaseURL, clientOpts...)

	sess := session.New(client, tokens)

	if m != nil {
		catalogOpts = append(catalogOpts, catalog.WithMetrics(m))
	}
	books := catalog.New(client, sess, catalogOpts...)

	return &Stores{
		DB:      db,
		Client:  client,
		Session: sess,
		Catalog: books,
	}, nil
}

// Restore restores the persisted session, then loads the unfiltered catalog.
func (s *Stores) Restore(ctx context.Context) {
	s.Session.Initialize(ctx)
	if user := s.Session.User(); user != nil {
		log.Printf("Session: restored session for %s", user.Email)
	}
	s.Catalog.FetchBooks(ctx, entities.BookFilter{})
}

func (s *Stores) Close() error {
	return s.DB.Close()
}
