package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/eyengage/engage-api/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// isDuplicate detects MySQL error 1062 (unique constraint violation).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// Create inserts a user with an already-hashed password and grants the
// initial role. New accounts start inactive and in first-login state; the
// mandatory password change activates them.
func (r *UserRepo) Create(ctx context.Context, u *model.User, role string) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, full_name, department, fonction, is_active, is_first_login)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Department, u.Fonction, u.IsActive, u.IsFirstLogin)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if role != "" {
		if err := r.AddRole(ctx, u.ID, role); err != nil {
			return err
		}
		u.Roles = []string{role}
	}
	return nil
}

const userColumns = "id,email,password_hash,full_name,department,fonction,is_active,is_first_login,created_at,updated_at"

func (r *UserRepo) scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Department, &u.Fonction,
		&u.IsActive, &u.IsFirstLogin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email, roles included.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if err != nil {
		return u, err
	}
	u.Roles, err = r.GetRoles(ctx, u.ID)
	return u, err
}

// GetByID fetches a user by id, roles included.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	u, err := r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if err != nil {
		return u, err
	}
	u.Roles, err = r.GetRoles(ctx, u.ID)
	return u, err
}

// GetRoles returns the role names granted to a user.
func (r *UserRepo) GetRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT role FROM user_roles WHERE user_id=? ORDER BY role", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AddRole grants a role. Granting a role the user already holds returns
// ErrDuplicate.
func (r *UserRepo) AddRole(ctx context.Context, userID, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role) VALUES (?,?)", userID, role)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// SetPassword stores a new password hash and the activity flags that go
// with it. The mandatory-change flow passes active=true, firstLogin=false.
func (r *UserRepo) SetPassword(ctx context.Context, userID, hash string, active, firstLogin bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, is_active=?, is_first_login=? WHERE id=?",
		hash, active, firstLogin, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
