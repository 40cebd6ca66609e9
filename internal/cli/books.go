package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mrlokans/bookclub/internal/catalog"
	"github.com/mrlokans/bookclub/internal/entities"
)

// BooksCommand lists the catalog, or one book with its reviews.
type BooksCommand struct {
	storeFlags
	BookID    string
	Search    string
	Genre     string
	MinRating float64
	Featured  bool
	Sort      string
}

func NewBooksCommand() *BooksCommand {
	return &BooksCommand{}
}

func (cmd *BooksCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("books", flag.ExitOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.BookID, "id", "", "Show a single book with its reviews")
	fs.StringVar(&cmd.Search, "q", "", "Only books whose title or author contains this text")
	fs.StringVar(&cmd.Genre, "genre", "", "Only books of this genre")
	fs.Float64Var(&cmd.MinRating, "min-rating", 0, "Minimum average rating")
	fs.BoolVar(&cmd.Featured, "featured", false, "Only featured books")
	fs.StringVar(&cmd.Sort, "sort", "", "Sort by one of: "+strings.Join(catalog.SortKeys, ", "))
	fs.Usage = usage(fs, "books [options]", "List books from the catalog.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Sort != "" && !validSortKey(cmd.Sort) {
		return fmt.Errorf("unknown sort key %q", cmd.Sort)
	}
	if cmd.MinRating < 0 || cmd.MinRating > 5 {
		return fmt.Errorf("-min-rating must be between 0 and 5")
	}
	return nil
}

func (cmd *BooksCommand) Run(ctx context.Context) error {
	stores, err := cmd.open(ctx)
	if err != nil {
		return err
	}
	defer closeStores(stores)

	if cmd.BookID != "" {
		book, ok := stores.Catalog.FetchBookByID(ctx, cmd.BookID)
		if !ok {
			return fmt.Errorf("book %s not found", cmd.BookID)
		}
		cmd.printBook(book)
		return nil
	}

	stores.Catalog.FetchBooks(ctx, entities.BookFilter{Featured: cmd.Featured})

	// Filtering happens locally so search is case-insensitive
	books := stores.Catalog.Browse(catalog.Query{
		Search:    cmd.Search,
		Genre:     cmd.Genre,
		MinRating: cmd.MinRating,
		Sort:      cmd.Sort,
	})
	if len(books) == 0 {
		cmd.printf("No books found\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.out(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tGENRE\tRATING\tREVIEWS")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%d\n", b.ID, b.Title, b.Author, b.Genre, b.AverageRating, b.TotalReviews)
	}
	return w.Flush()
}

func (cmd *BooksCommand) printBook(b entities.Book) {
	cmd.printf("%s by %s\n", b.Title, b.Author)
	if b.Genre != "" {
		cmd.printf("Genre: %s\n", b.Genre)
	}
	if b.PublishYear != 0 {
		cmd.printf("Published: %d\n", b.PublishYear)
	}
	cmd.printf("Rating: %.1f (%d reviews)\n", b.AverageRating, b.TotalReviews)
	if b.Description != "" {
		cmd.printf("\n%s\n", b.Description)
	}
	for _, r := range b.Reviews {
		cmd.printf("\n%s rated %d/5\n  %s\n", r.UserName, r.Rating, r.Comment)
	}
}

func validSortKey(key string) bool {
	for _, k := range catalog.SortKeys {
		if k == key {
			return true
		}
	}
	return false
}
