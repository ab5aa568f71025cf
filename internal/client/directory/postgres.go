package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/regflow/internal/client/models"
	"github.com/dmitrijs2005/regflow/internal/common"
	"github.com/dmitrijs2005/regflow/internal/dbx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"

	constraintUsersEmail     = "users_email_key"
	constraintProfilesMobile = "profiles_mobile_key"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *PostgresRepository) MobileExists(ctx context.Context, mobile string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE mobile = $1)`, mobile)
}

func (r *PostgresRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

// CreateAccount inserts the credential and the profile document in one
// transaction. acc.ID is generated when empty.
func (r *PostgresRepository) CreateAccount(ctx context.Context, acc *models.Account) (*models.Account, error) {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (id, email, password_hash)
			 VALUES ($1, $2, $3)
			 RETURNING created_at`,
			acc.ID, acc.Email, acc.PasswordHash).Scan(&acc.CreatedAt)
		if err != nil {
			return mapError(err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, full_name, email, mobile, image_url)
			 VALUES ($1, $2, $3, $4, $5)`,
			acc.ID, acc.FullName, acc.Email, acc.Mobile, acc.ImageURL)
		return mapError(err)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (r *PostgresRepository) SetImageURL(ctx context.Context, accountID, url string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET image_url = $2, updated_at = now()
		 WHERE user_id = $1`,
		accountID, url)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case constraintUsersEmail:
			return fmt.Errorf("%w: %w: %s", ErrAlreadyExists, ErrEmailTaken, pgErr.ConstraintName)
		case constraintProfilesMobile:
			return fmt.Errorf("%w: %w: %s", ErrAlreadyExists, ErrMobileTaken, pgErr.ConstraintName)
		}
		return fmt.Errorf("%w: %s", ErrAlreadyExists, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}
