package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saxonmc/book-finder/internal/domain"
	"github.com/saxonmc/book-finder/pkg/database"
	apperrors "github.com/saxonmc/book-finder/pkg/errors"
)

const userBookColumns = `id, user_id, book_id, title, author, cover_image, isbn, status, rating, notes, created_at, updated_at`

// LibraryRepository implements reading list persistence using PostgreSQL.
type LibraryRepository struct {
	pool database.DBTX
}

// NewLibraryRepository creates a new PostgreSQL-backed library repository.
func NewLibraryRepository(pool database.DBTX) *LibraryRepository {
	return &LibraryRepository{pool: pool}
}

// Add puts a book on the user's list. A book can be listed once per user.
func (r *LibraryRepository) Add(ctx context.Context, b *domain.UserBook) error {
	query := `
		INSERT INTO user_books (` + userBookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.UserID,
		b.BookID,
		b.Title,
		b.Author,
		b.CoverImage,
		b.ISBN,
		b.Status,
		b.Rating,
		b.Notes,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("library book", "book_id", b.BookID)
		}
		return fmt.Errorf("insert library book: %w", err)
	}

	return nil
}

// List returns the user's books, newest first, optionally filtered by status.
func (r *LibraryRepository) List(ctx context.Context, userID, status string) ([]domain.UserBook, error) {
	query := `
		SELECT ` + userBookColumns + `
		FROM user_books
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list library books: %w", err)
	}
	defer rows.Close()

	books := []domain.UserBook{}
	for rows.Next() {
		b, err := scanUserBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan library book: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library books: %w", err)
	}

	return books, nil
}

// Get returns the user's entry for a book.
func (r *LibraryRepository) Get(ctx context.Context, userID, bookID string) (*domain.UserBook, error) {
	query := `SELECT ` + userBookColumns + ` FROM user_books WHERE user_id = $1 AND book_id = $2`

	b, err := scanUserBook(r.pool.QueryRow(ctx, query, userID, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("library book", bookID)
		}
		return nil, fmt.Errorf("get library book: %w", err)
	}
	return b, nil
}

// Update applies the patch to the user's entry for a book.
func (r *LibraryRepository) Update(ctx context.Context, userID, bookID string, patch domain.LibraryPatch) (*domain.UserBook, error) {
	query := `
		UPDATE user_books
		SET status     = COALESCE($3, status),
		    rating     = COALESCE($4, rating),
		    notes      = COALESCE($5, notes),
		    updated_at = NOW()
		WHERE user_id = $1 AND book_id = $2
		RETURNING ` + userBookColumns

	b, err := scanUserBook(r.pool.QueryRow(ctx, query, userID, bookID, patch.Status, patch.Rating, patch.Notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("library book", bookID)
		}
		return nil, fmt.Errorf("update library book: %w", err)
	}
	return b, nil
}

// Remove takes a book off the user's list.
func (r *LibraryRepository) Remove(ctx context.Context, userID, bookID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM user_books WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return fmt.Errorf("delete library book: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("library book", bookID)
	}
	return nil
}

func scanUserBook(row pgx.Row) (*domain.UserBook, error) {
	var b domain.UserBook
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.BookID,
		&b.Title,
		&b.Author,
		&b.CoverImage,
		&b.ISBN,
		&b.Status,
		&b.Rating,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
