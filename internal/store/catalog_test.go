package store

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mininik08inv/bookstore/internal/db"
)

func TestUpsertGenreIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertGenre(ctx, "sci-fi")
	require.NoError(t, err)
	again, err := s.UpsertGenre(ctx, "  sci-fi ")
	require.NoError(t, err)
	assert.Equal(t, first.GenreID, again.GenreID)

	var n int64
	require.NoError(t, s.db.Model(&db.Genre{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	_, err = s.UpsertGenre(ctx, "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUpsertAuthorIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertAuthor(ctx, "Stanislaw Lem")
	require.NoError(t, err)
	again, err := s.UpsertAuthor(ctx, "Stanislaw Lem")
	require.NoError(t, err)
	assert.Equal(t, first.AuthorID, again.AuthorID)

	_, err = s.UpsertAuthor(ctx, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUpsertBookCreatesThenUpdatesInPlace(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	book, err := s.UpsertBook(ctx, "Solaris", "Stanislaw Lem", "sci-fi",
		decimal.RequireFromString("12.50"), 5)
	require.NoError(t, err)
	require.NotZero(t, book.BookID)

	// same (title, author) updates price, genre and amount in place
	updated, err := s.UpsertBook(ctx, "Solaris", "Stanislaw Lem", "classics",
		decimal.RequireFromString("15.00"), 7)
	require.NoError(t, err)
	assert.Equal(t, book.BookID, updated.BookID)

	var got db.Book
	require.NoError(t, s.db.Where("book_id = ?", book.BookID).Take(&got).Error)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, 7, got.Amount)

	// author and genre ids resolve to live rows
	var author db.Author
	require.NoError(t, s.db.Where("author_id = ?", got.AuthorID).Take(&author).Error)
	var genre db.Genre
	require.NoError(t, s.db.Where("genre_id = ?", got.GenreID).Take(&genre).Error)
	assert.Equal(t, "classics", genre.NameGenre)

	// same title by a different author is a new book
	other, err := s.UpsertBook(ctx, "Solaris", "Someone Else", "sci-fi",
		decimal.RequireFromString("9.99"), 1)
	require.NoError(t, err)
	assert.NotEqual(t, book.BookID, other.BookID)
}

func TestUpsertBookValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	var verr *ValidationError

	_, err := s.UpsertBook(ctx, "", "A", "G", decimal.RequireFromString("1.00"), 0)
	require.ErrorAs(t, err, &verr)

	_, err = s.UpsertBook(ctx, "T", "A", "G", decimal.Zero, 0)
	require.ErrorAs(t, err, &verr)

	_, err = s.UpsertBook(ctx, "T", "A", "G", decimal.RequireFromString("-3.10"), 0)
	require.ErrorAs(t, err, &verr)

	_, err = s.UpsertBook(ctx, "T", "A", "G", decimal.RequireFromString("1.999"), 0)
	require.ErrorAs(t, err, &verr)

	_, err = s.UpsertBook(ctx, "T", "A", "G", decimal.RequireFromString("1.00"), -1)
	require.ErrorAs(t, err, &verr)
}

func TestAdjustStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	book, err := s.UpsertBook(ctx, "Solaris", "Lem", "sci-fi",
		decimal.RequireFromString("12.50"), 5)
	require.NoError(t, err)

	n, err := s.AdjustStock(ctx, book.BookID, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = s.AdjustStock(ctx, book.BookID, -8)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = s.AdjustStock(ctx, book.BookID, -1)
	var serr *InsufficientStockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, book.BookID, serr.BookID)
	assert.Equal(t, 0, serr.Have)
	assert.Equal(t, 1, serr.Want)

	// nothing changed on failure
	var got db.Book
	require.NoError(t, s.db.Where("book_id = ?", book.BookID).Take(&got).Error)
	assert.Equal(t, 0, got.Amount)

	_, err = s.AdjustStock(ctx, 9999, -1)
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)
}

func TestAdjustStockConcurrentDecrements(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	const stock = 20
	book, err := s.UpsertBook(ctx, "Solaris", "Lem", "sci-fi",
		decimal.RequireFromString("12.50"), stock)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, stock)
	for i := 0; i < stock; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AdjustStock(ctx, book.BookID, -1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	var got db.Book
	require.NoError(t, s.db.Where("book_id = ?", book.BookID).Take(&got).Error)
	assert.Equal(t, 0, got.Amount)
}

func TestBooksByAuthorAndTitle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertBook(ctx, "Solaris", "Lem", "sci-fi", decimal.RequireFromString("12.50"), 5)
	require.NoError(t, err)
	_, err = s.UpsertBook(ctx, "The Invincible", "Lem", "sci-fi", decimal.RequireFromString("11.00"), 2)
	require.NoError(t, err)
	_, err = s.UpsertBook(ctx, "Roadside Picnic", "Strugatsky", "sci-fi", decimal.RequireFromString("10.00"), 3)
	require.NoError(t, err)

	byAuthor, err := s.BooksByAuthor(ctx, "Lem")
	require.NoError(t, err)
	require.Len(t, byAuthor, 2)
	assert.Equal(t, "Solaris", byAuthor[0].Title)
	assert.Equal(t, "The Invincible", byAuthor[1].Title)

	byTitle, err := s.BooksByTitle(ctx, "Invinc")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "The Invincible", byTitle[0].Title)

	none, err := s.BooksByAuthor(ctx, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteAuthorAndGenreGuards(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	book, err := s.UpsertBook(ctx, "Solaris", "Lem", "sci-fi", decimal.RequireFromString("12.50"), 1)
	require.NoError(t, err)

	var cerr *ConflictError
	require.ErrorAs(t, s.DeleteAuthor(ctx, book.AuthorID), &cerr)
	require.ErrorAs(t, s.DeleteGenre(ctx, book.GenreID), &cerr)

	unused, err := s.UpsertAuthor(ctx, "Nobody Read")
	require.NoError(t, err)
	require.NoError(t, s.DeleteAuthor(ctx, unused.AuthorID))

	var nerr *NotFoundError
	require.ErrorAs(t, s.DeleteAuthor(ctx, unused.AuthorID), &nerr)
}
