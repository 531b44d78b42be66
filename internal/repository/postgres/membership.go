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

const membershipColumns = `id, user_id, service, membership_type, price, status, start_date, end_date, notes, created_at, updated_at`

// MembershipRepository implements membership persistence using PostgreSQL.
type MembershipRepository struct {
	pool database.DBTX
}

// NewMembershipRepository creates a new PostgreSQL-backed membership repository.
func NewMembershipRepository(pool database.DBTX) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// Create inserts a new membership.
func (r *MembershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	query := `
		INSERT INTO user_memberships (` + membershipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.UserID,
		m.Service,
		m.MembershipType,
		m.Price,
		m.Status,
		m.StartDate,
		m.EndDate,
		m.Notes,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// ListByUser returns the user's memberships, newest first.
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM user_memberships
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	memberships := []domain.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		memberships = append(memberships, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return memberships, nil
}

// GetByID retrieves a membership owned by userID.
func (r *MembershipRepository) GetByID(ctx context.Context, id, userID string) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM user_memberships WHERE id = $1 AND user_id = $2`

	m, err := scanMembership(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("membership", id)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// Update overwrites a membership owned by m.UserID.
func (r *MembershipRepository) Update(ctx context.Context, m *domain.Membership) error {
	query := `
		UPDATE user_memberships
		SET service = $3, membership_type = $4, price = $5, status = $6,
		    start_date = $7, end_date = $8, notes = $9, updated_at = $10
		WHERE id = $1 AND user_id = $2`

	ct, err := r.pool.Exec(ctx, query,
		m.ID,
		m.UserID,
		m.Service,
		m.MembershipType,
		m.Price,
		m.Status,
		m.StartDate,
		m.EndDate,
		m.Notes,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("membership", m.ID)
	}
	return nil
}

// Delete removes a membership owned by userID.
func (r *MembershipRepository) Delete(ctx context.Context, id, userID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM user_memberships WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("membership", id)
	}
	return nil
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Service,
		&m.MembershipType,
		&m.Price,
		&m.Status,
		&m.StartDate,
		&m.EndDate,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
