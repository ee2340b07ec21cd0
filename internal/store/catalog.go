package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mininik08inv/bookstore/internal/db"
)

// UpsertGenre returns the genre with that name, creating it if missing.
func (s *Store) UpsertGenre(ctx context.Context, name string) (*db.Genre, error) {
	return upsertGenreTx(s.db.WithContext(ctx), name)
}

// UpsertAuthor returns the author with that name, creating it if missing.
func (s *Store) UpsertAuthor(ctx context.Context, name string) (*db.Author, error) {
	return upsertAuthorTx(s.db.WithContext(ctx), name)
}

func upsertGenreTx(tx *gorm.DB, name string) (*db.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "genre name", Value: name, Reason: "must not be blank"}
	}
	var g db.Genre
	if err := tx.Where(&db.Genre{NameGenre: name}).FirstOrCreate(&g).Error; err != nil {
		return nil, fmt.Errorf("upsert genre %q: %w", name, err)
	}
	return &g, nil
}

func upsertAuthorTx(tx *gorm.DB, name string) (*db.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "author name", Value: name, Reason: "must not be blank"}
	}
	var a db.Author
	if err := tx.Where(&db.Author{NameAuthor: name}).FirstOrCreate(&a).Error; err != nil {
		return nil, fmt.Errorf("upsert author %q: %w", name, err)
	}
	return &a, nil
}

// UpsertBook resolves (or creates) the author and genre, then creates the
// book or updates it in place. Books are keyed by (title, author): the same
// title by a different author is a different book.
func (s *Store) UpsertBook(ctx context.Context, title, authorName, genreName string, price decimal.Decimal, amount int) (*db.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Value: title, Reason: "must not be blank"}
	}
	if !price.IsPositive() {
		return nil, &ValidationError{Field: "price", Value: price, Reason: "must be positive"}
	}
	if !price.Equal(price.Round(2)) {
		return nil, &ValidationError{Field: "price", Value: price, Reason: "more than two fractional digits"}
	}
	if amount < 0 {
		return nil, &ValidationError{Field: "amount", Value: amount, Reason: "must not be negative"}
	}

	var book db.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		author, err := upsertAuthorTx(tx, authorName)
		if err != nil {
			return err
		}
		genre, err := upsertGenreTx(tx, genreName)
		if err != nil {
			return err
		}

		err = tx.Where("title = ? AND author_id = ?", title, author.AuthorID).Take(&book).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			book = db.Book{
				Title:    title,
				AuthorID: author.AuthorID,
				GenreID:  genre.GenreID,
				Price:    price,
				Amount:   amount,
			}
			return tx.Create(&book).Error
		case err != nil:
			return err
		default:
			book.GenreID = genre.GenreID
			book.Price = price
			book.Amount = amount
			return tx.Model(&db.Book{}).
				Where("book_id = ?", book.BookID).
				Updates(map[string]any{
					"genre_id": genre.GenreID,
					"price":    price,
					"amount":   amount,
				}).Error
		}
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Uint("book_id", book.BookID).Str("title", title).Msg("book upserted")
	return &book, nil
}

// AdjustStock applies delta to the book's amount as one conditional UPDATE,
// so two concurrent decrements can never drive the stock negative. Returns
// the amount after the change.
func (s *Store) AdjustStock(ctx context.Context, bookID uint, delta int) (int, error) {
	var amount int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := adjustStockTx(tx, bookID, delta)
		amount = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func adjustStockTx(tx *gorm.DB, bookID uint, delta int) (int, error) {
	res := tx.Model(&db.Book{}).
		Where("book_id = ? AND amount + ? >= 0", bookID, delta).
		UpdateColumn("amount", gorm.Expr("amount + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var book db.Book
		if err := tx.Where("book_id = ?", bookID).Take(&book).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, &NotFoundError{Entity: "book", ID: bookID}
			}
			return 0, err
		}
		return 0, &InsufficientStockError{BookID: bookID, Have: book.Amount, Want: -delta}
	}

	var book db.Book
	if err := tx.Where("book_id = ?", bookID).Take(&book).Error; err != nil {
		return 0, err
	}
	return book.Amount, nil
}

// BooksByAuthor lists the catalog of one author by name.
func (s *Store) BooksByAuthor(ctx context.Context, authorName string) ([]db.Book, error) {
	var books []db.Book
	err := s.db.WithContext(ctx).
		Joins("JOIN authors ON authors.author_id = books.author_id").
		Where("authors.name_author = ?", strings.TrimSpace(authorName)).
		Order("books.title").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("books by author %q: %w", authorName, err)
	}
	return books, nil
}

// BooksByTitle does an index-backed substring search over titles.
func (s *Store) BooksByTitle(ctx context.Context, title string) ([]db.Book, error) {
	var books []db.Book
	err := s.db.WithContext(ctx).
		Where("title LIKE ?", "%"+strings.TrimSpace(title)+"%").
		Order("title").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("books by title %q: %w", title, err)
	}
	return books, nil
}

// DeleteAuthor removes an author unless any book still references it.
func (s *Store) DeleteAuthor(ctx context.Context, authorID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.Book{}).Where("author_id = ?", authorID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Entity: "author", Field: "author_id", Value: authorID,
				Reason: fmt.Sprintf("referenced by %d books", n)}
		}
		res := tx.Delete(&db.Author{}, "author_id = ?", authorID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "author", ID: authorID}
		}
		return nil
	})
}

// DeleteGenre removes a genre unless any book still references it.
func (s *Store) DeleteGenre(ctx context.Context, genreID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.Book{}).Where("genre_id = ?", genreID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Entity: "genre", Field: "genre_id", Value: genreID,
				Reason: fmt.Sprintf("referenced by %d books", n)}
		}
		res := tx.Delete(&db.Genre{}, "genre_id = ?", genreID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "genre", ID: genreID}
		}
		return nil
	})
}
