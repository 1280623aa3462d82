package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"

	"go.uber.org/zap"
)

const userColumns = `id, name, email, phone, address, password_hash, is_admin, created_at`

// --- Users (implements port.UserStore) ---

// CreateUser inserts the account and returns it with its generated ID.
// A duplicate e-mail yields *domain.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Store.CreateUser")
	defer span.End()

	now := time.Now().UTC()
	query := s.dialect.rebind(`INSERT INTO users (name, email, phone, address, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := s.withRetry(ctx, "create_user", func() error {
		return s.db.QueryRowContext(ctx, query,
			user.Name, user.Email, nullable(user.Phone), nullable(user.Address),
			user.PasswordHash, user.IsAdmin, now.Unix(), now.Unix(),
		).Scan(&id)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: "Email đã được sử dụng."}
		}
		s.logger.Error("sqlstore: create user failed", zap.Error(err))
		return nil, fmt.Errorf("create user: %w", err)
	}

	created := *user
	created.ID = id
	created.CreatedAt = time.Unix(now.Unix(), 0).UTC()
	return &created, nil
}

// GetUserByEmail returns (nil, nil) when no account has that e-mail.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Store.GetUserByEmail")
	defer span.End()

	u, err := s.queryUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetUserByID returns the account or *domain.ErrNotFound.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Store.GetUserByID")
	defer span.End()

	u, err := s.queryUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: strconv.FormatInt(id, 10)}
	}
	return u, nil
}

func (s *Store) queryUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var (
		u              domain.User
		phone, address sql.NullString
		createdAt      int64
		found          bool
	)
	err := s.withRetry(ctx, "query_user", func() error {
		err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...).Scan(
			&u.ID, &u.Name, &u.Email, &phone, &address, &u.PasswordHash, &u.IsAdmin, &createdAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	u.Phone = phone.String
	u.Address = address.String
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
