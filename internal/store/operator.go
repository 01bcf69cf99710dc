package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rosterhq/playerapi/types"
)

// OperatorRepository handles persistence for operator accounts.
type OperatorRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewOperatorRepository(db *sql.DB, dialect Dialect) *OperatorRepository {
	return &OperatorRepository{db: db, dialect: dialect}
}

func (r *OperatorRepository) GetByID(ctx context.Context, id int64) (types.Operator, error) {
	return r.getOne(ctx, "id", id)
}

func (r *OperatorRepository) GetByUsername(ctx context.Context, username string) (types.Operator, error) {
	return r.getOne(ctx, "username", username)
}

func (r *OperatorRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operators`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *OperatorRepository) getOne(ctx context.Context, column string, value any) (types.Operator, error) {
	query := `
		SELECT id, username, role, password_hash, created_at, updated_at
		FROM operators
		WHERE ` + column + ` = ` + r.dialect.Placeholder(1)
	var (
		operator             types.Operator
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&operator.ID,
		&operator.Username,
		&operator.Role,
		&operator.PasswordHash,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Operator{}, ErrNotFound
		}
		return types.Operator{}, err
	}
	operator.CreatedAt = time.UnixMilli(createdAt).UTC()
	operator.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return operator, nil
}

func (r *OperatorRepository) Create(ctx context.Context, operator types.Operator) (types.Operator, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	operator.CreatedAt = now
	operator.UpdatedAt = now

	p := r.dialect.Placeholder
	query := fmt.Sprintf(`
		INSERT INTO operators (username, role, password_hash, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s)
		RETURNING id`, p(1), p(2), p(3), p(4), p(5))
	if err := r.db.QueryRowContext(
		ctx,
		query,
		operator.Username,
		operator.Role,
		operator.PasswordHash,
		operator.CreatedAt.UnixMilli(),
		operator.UpdatedAt.UnixMilli(),
	).Scan(&operator.ID); err != nil {
		return types.Operator{}, err
	}
	return operator, nil
}
