package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/mrlokans/bookclub/internal/entities"
)

// ReviewCommand posts a review as the logged-in user.
type ReviewCommand struct {
	storeFlags
	BookID  string
	Rating  int
	Comment string
}

func NewReviewCommand() *ReviewCommand {
	return &ReviewCommand{}
}

func (cmd *ReviewCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.BookID, "book", "", "Book ID (required)")
	fs.IntVar(&cmd.Rating, "rating", 0, "Rating from 1 to 5 (required)")
	fs.StringVar(&cmd.Comment, "comment", "", "Review text (required)")
	fs.Usage = usage(fs, "review -book <id> -rating <1-5> -comment <text>",
		"Add a review to a book. Requires a saved session.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BookID == "" {
		return fmt.Errorf("required flag -book not provided")
	}
	return nil
}

func (cmd *ReviewCommand) Run(ctx context.Context) error {
	stores, err := cmd.open(ctx)
	if err != nil {
		return err
	}
	defer closeStores(stores)

	user := stores.Session.User()
	if user == nil {
		return ErrNotLoggedIn
	}

	book, err := stores.Catalog.AddReview(ctx, cmd.BookID, entities.ReviewInput{
		UserID:     user.ID,
		UserName:   user.Name,
		UserAvatar: user.Avatar,
		Rating:     cmd.Rating,
		Comment:    cmd.Comment,
	})
	if err != nil {
		return fmt.Errorf("review not added: %w", err)
	}

	cmd.printf("Review added to %s. Now rated %.1f from %d reviews\n", book.Title, book.AverageRating, book.TotalReviews)
	return nil
}
