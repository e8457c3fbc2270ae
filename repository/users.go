package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UsersRepository implements users.UserStore using Bun.
type UsersRepository struct {
	db *bun.DB
}

// NewUsersRepository creates a new repository.
func NewUsersRepository(db *bun.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

var _ users.UserStore = (*UsersRepository)(nil)

// FindByIdentifier resolves an account by username, e-mail address, or
// record id in a single query. Matching more than one account is treated
// as a data integrity failure rather than picking one arbitrarily.
func (r *UsersRepository) FindByIdentifier(ctx context.Context, identifier string) (*users.User, error) {
	if identifier == "" {
		return nil, users.ErrMissingIdentifier
	}

	var records []users.User

	q := r.db.NewSelect().
		Model(&records).
		Where("usr.username = ?", identifier).
		WhereOr("usr.email_address = ?", identifier)

	if id, err := uuid.Parse(identifier); err == nil {
		q = q.WhereOr("usr.id = ?", id)
	}

	if err := q.Limit(2).Scan(ctx); err != nil {
		return nil, wrapQueryError(err, "failed to resolve user identifier")
	}

	switch len(records) {
	case 0:
		return nil, users.ErrUserNotFound
	case 1:
		return &records[0], nil
	default:
		return nil, users.ErrAmbiguousIdentifier
	}
}

// FindByID loads an account by its record id.
func (r *UsersRepository) FindByID(ctx context.Context, id string) (*users.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, users.ErrUserNotFound
	}

	record := new(users.User)
	if err := r.db.NewSelect().
		Model(record).
		Where("usr.id = ?", uid).
		Scan(ctx); err != nil {
		return nil, wrapQueryError(err, "failed to load user")
	}

	return record, nil
}

// Create inserts a new account. Missing id, token_id, and timestamps are
// filled in here so callers can pass a sparse record.
func (r *UsersRepository) Create(ctx context.Context, user *users.User) (*users.User, error) {
	record := user.Clone()
	now := time.Now()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.TokenID == "" {
		record.TokenID = uuid.NewString()
	}
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	record.UpdatedAt = &now

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, wrapWriteError(err, "failed to create user")
	}

	return record, nil
}

// Update applies a sparse property patch and returns the updated record.
func (r *UsersRepository) Update(ctx context.Context, id string, patch users.UserPatch) (*users.User, error) {
	record, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.IsZero() {
		return record, nil
	}

	now := time.Now()
	q := r.db.NewUpdate().
		Model(record).
		WherePK().
		Set("updated_at = ?", now)

	if patch.Username != nil {
		record.Username = *patch.Username
		q = q.Set("username = ?", record.Username)
	}
	if patch.Email != nil {
		record.Email = *patch.Email
		q = q.Set("email_address = ?", record.Email)
	}
	if patch.DisplayName != nil {
		record.DisplayName = *patch.DisplayName
		q = q.Set("display_name = ?", record.DisplayName)
	}
	if patch.IsAdmin != nil {
		record.IsAdmin = *patch.IsAdmin
		q = q.Set("is_admin = ?", record.IsAdmin)
	}
	if patch.Locked != nil {
		record.Locked = *patch.Locked
		q = q.Set("locked = ?", record.Locked)
	}
	if patch.Activated != nil {
		record.Activated = *patch.Activated
		q = q.Set("activated = ?", record.Activated)
	}

	if _, err := q.Exec(ctx); err != nil {
		return nil, wrapWriteError(err, "failed to update user")
	}

	record.UpdatedAt = &now
	return record, nil
}

// UpdatePassword replaces the stored password hash.
func (r *UsersRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) (*users.User, error) {
	record, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record.PasswordHash = passwordHash
	record.UpdatedAt = &now

	if _, err := r.db.NewUpdate().
		Model(record).
		WherePK().
		Set("password_hashed = ?", record.PasswordHash).
		Set("updated_at = ?", record.UpdatedAt).
		Exec(ctx); err != nil {
		return nil, wrapWriteError(err, "failed to update password")
	}

	return record, nil
}

// RotateTokenID replaces the account's token_id with a fresh value,
// which invalidates every token issued against the old one.
func (r *UsersRepository) RotateTokenID(ctx context.Context, id string) (*users.User, error) {
	record, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record.TokenID = uuid.NewString()
	record.UpdatedAt = &now

	if _, err := r.db.NewUpdate().
		Model(record).
		WherePK().
		Set("token_id = ?", record.TokenID).
		Set("updated_at = ?", record.UpdatedAt).
		Exec(ctx); err != nil {
		return nil, wrapWriteError(err, "failed to rotate token id")
	}

	return record, nil
}

// RegisterLastLogin stamps the account's login time.
func (r *UsersRepository) RegisterLastLogin(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return users.ErrUserNotFound
	}

	res, err := r.db.NewUpdate().
		Model((*users.User)(nil)).
		Where("usr.id = ?", uid).
		Set("last_login = ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return wrapWriteError(err, "failed to register last login")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return users.ErrUserNotFound
	}

	return nil
}

// Delete removes the account.
func (r *UsersRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return users.ErrUserNotFound
	}

	res, err := r.db.NewDelete().
		Model((*users.User)(nil)).
		Where("usr.id = ?", uid).
		Exec(ctx)
	if err != nil {
		return wrapWriteError(err, "failed to delete user")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return users.ErrUserNotFound
	}

	return nil
}

// List returns a page of accounts plus the total count for the same
// filters.
func (r *UsersRepository) List(ctx context.Context, query users.ListQuery) (*users.UserPage, error) {
	var records []users.User

	q := r.db.NewSelect().Model(&records)

	if query.Search != "" {
		pattern := "%" + query.Search + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("usr.username LIKE ?", pattern).
				WhereOr("usr.email_address LIKE ?", pattern).
				WhereOr("usr.display_name LIKE ?", pattern)
		})
	}

	if len(query.IDs) > 0 {
		q = q.Where("usr.id IN (?)", bun.In(query.IDs))
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, wrapQueryError(err, "failed to count users")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	if err := q.
		Order("username ASC").
		Limit(limit).
		Offset(query.Skip).
		Scan(ctx); err != nil {
		return nil, wrapQueryError(err, "failed to list users")
	}

	page := &users.UserPage{
		Count: total,
		Skip:  query.Skip,
		Limit: limit,
		Users: make([]*users.User, len(records)),
	}
	for i := range records {
		page.Users[i] = &records[i]
	}

	return page, nil
}

// EnsureAdmin guarantees an administrator account with the given username
// exists. An existing account is returned untouched, password hash
// included. The whole check-then-create runs in one transaction so two
// concurrent bootstraps cannot both insert.
func (r *UsersRepository) EnsureAdmin(ctx context.Context, username, passwordHash string) (*users.User, bool, error) {
	var admin *users.User
	created := false

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		existing := new(users.User)
		err := tx.NewSelect().
			Model(existing).
			Where("usr.username = ?", username).
			Scan(ctx)
		if err == nil {
			admin = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		now := time.Now()
		admin = &users.User{
			ID:           uuid.New(),
			Username:     username,
			Email:        username,
			DisplayName:  username,
			PasswordHash: passwordHash,
			IsAdmin:      true,
			Activated:    true,
			TokenID:      uuid.NewString(),
			CreatedAt:    &now,
			UpdatedAt:    &now,
		}

		if _, err := tx.NewInsert().Model(admin).Exec(ctx); err != nil {
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, false, wrapWriteError(err, "failed to ensure admin account")
	}

	return admin, created, nil
}

func wrapQueryError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return users.ErrUserNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func wrapWriteError(err error, msg string) error {
	if isUniqueViolation(err) {
		return users.ErrDuplicateUser
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

// isUniqueViolation matches the constraint error text from the SQLite and
// Postgres drivers. Neither exposes a portable sentinel through Bun.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
