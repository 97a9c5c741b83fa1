package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/FelipeMiiller/userhub-back/internal/model"
)

// UserRepo is the MySQL credential store.  All session-state mutation
// goes through the session manager; no other component writes here.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,last_name,avatar_url,password_hash,refresh_token_hash,role,is_active,last_login_at,created_at,updated_at"

// Create inserts a new user row.  Email must already be normalized by
// the caller.  A duplicate email surfaces as auth.ErrDuplicateIdentity.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, name, last_name, avatar_url, password_hash, refresh_token_hash, role, is_active) VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Email, u.Name, u.LastName, nullable(u.AvatarURL), u.PasswordHash, nullable(u.RefreshTokenHash), string(u.Role), u.IsActive)
	return mapError(err)
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// UpdateRefreshHash overwrites the stored refresh-token hash, which
// invalidates whatever refresh token was trusted before.
func (r *UserRepo) UpdateRefreshHash(ctx context.Context, id, refreshHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=?", refreshHash, id)
	return mapError(err)
}

// ClearRefreshToken nulls the refresh-token hash.  Unlike the other
// updates it does not care whether a row matched: clearing an unknown or
// already-logged-out id is a no-op.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=NULL WHERE id=?", id)
	return mapError(err)
}

// UpdatePassword replaces the password hash wholesale.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
	return mapError(err)
}

// UpdateLastLogin records the most recent successful sign-in.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login_at=? WHERE id=?", at, id)
	return mapError(err)
}

// UpdateAvatar backfills the avatar URL for external-provider accounts.
func (r *UserRepo) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET avatar_url=? WHERE id=?", avatarURL, id)
	return mapError(err)
}

// scanUser reads one row into a model.User, unwrapping the nullable
// columns.
func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u         model.User
		role      string
		avatar    sql.NullString
		refresh   sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.LastName, &avatar, &u.PasswordHash,
		&refresh, &role, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	u.Role = model.Role(role)
	u.AvatarURL = avatar.String
	u.RefreshTokenHash = refresh.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

// nullable turns an empty string into a SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
