package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/learnhub/auth-service/internal/model"
)

// UserRepo persists identities in the `users` table and their course
// entitlements in `user_courses`. Default projections never select
// password_hash; the WithPassword variants exist for credential checks
// only.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,avatar_public_id,avatar_url,role,is_verified,created_at,updated_at"

// Create inserts the user and returns it with the assigned id. The
// unique email index is the last line of defense against the signup
// race; a duplicate insert surfaces as ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	u.Email = normalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, avatar_public_id, avatar_url, role, is_verified) VALUES (?,?,?,?,?,?,?)",
		u.Name, u.Email, u.PasswordHash, u.Avatar.PublicID, u.Avatar.URL, u.Role, u.IsVerified)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	u.ID = uint64(id)
	u.PasswordHash = ""
	return r.GetByID(ctx, u.ID)
}

// GetByID fetches a user by id, password excluded, entitlements loaded.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return r.scanUser(ctx, row)
}

// GetByEmail fetches a user by normalized email, password excluded.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	return r.scanUser(ctx, row)
}

// GetByEmailWithPassword is the login projection: same as GetByEmail
// but with the stored hash attached.
func (r *UserRepo) GetByEmailWithPassword(ctx context.Context, email string) (model.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return model.User{}, err
	}
	if err := r.attachPassword(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// GetByIDWithPassword serves the password-change flow.
func (r *UserRepo) GetByIDWithPassword(ctx context.Context, id uint64) (model.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if err := r.attachPassword(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// UpdateName changes the display name.
func (r *UserRepo) UpdateName(ctx context.Context, id uint64, name string) error {
	return r.exec(ctx, "UPDATE users SET name=? WHERE id=?", name, id)
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.exec(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
}

// UpdateAvatar replaces the media reference.
func (r *UserRepo) UpdateAvatar(ctx context.Context, id uint64, a model.Avatar) error {
	return r.exec(ctx, "UPDATE users SET avatar_public_id=?, avatar_url=? WHERE id=?",
		a.PublicID, a.URL, id)
}

// UpdateRole changes the role name.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	return r.exec(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
}

// List returns all users, newest first, passwords and entitlements
// excluded. Admin-only surface.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar.PublicID, &u.Avatar.URL,
			&u.Role, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Delete removes the user row; entitlement rows go with it via the
// foreign key cascade.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return r.exec(ctx, "DELETE FROM users WHERE id=?", id)
}

func (r *UserRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 && strings.HasPrefix(query, "DELETE") {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) scanUser(ctx context.Context, row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar.PublicID, &u.Avatar.URL,
		&u.Role, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if u.Courses, err = r.loadCourses(ctx, u.ID); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (r *UserRepo) attachPassword(ctx context.Context, u *model.User) error {
	err := r.DB.QueryRowContext(ctx,
		"SELECT password_hash FROM users WHERE id=? LIMIT 1", u.ID).Scan(&u.PasswordHash)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func (r *UserRepo) loadCourses(ctx context.Context, id uint64) ([]model.CourseRef, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT course_id FROM user_courses WHERE user_id=? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []model.CourseRef{}
	for rows.Next() {
		var ref model.CourseRef
		if err := rows.Scan(&ref.CourseID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
