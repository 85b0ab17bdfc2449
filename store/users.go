package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/adonese/folio/cms_fields"
)

// CreateUser stores a user whose Password is already a bcrypt hash.
func (s *Store) CreateUser(ctx context.Context, user *cms_fields.User) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	user.SanitizeEmail()
	if user.Role == "" {
		user.Role = cms_fields.RoleEditor
	}
	now := s.Now()
	stmt := s.DB.Rebind(`INSERT INTO users(email, name, password, role, totp_secret, totp_enabled, created_at, updated_at)
		VALUES(?, ?, ?, ?, '', ?, ?, ?) RETURNING id`)
	if err := db.GetContext(ctx, &user.ID, stmt, user.Email, user.Name, user.Password, user.Role, false, now, now); err != nil {
		return err
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*cms_fields.User, error) {
	return s.getUser(ctx, "SELECT * FROM users WHERE id = ?", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*cms_fields.User, error) {
	u := cms_fields.User{Email: email}
	u.SanitizeEmail()
	return s.getUser(ctx, "SELECT * FROM users WHERE email = ?", u.Email)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*cms_fields.User, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	var user cms_fields.User
	if err := db.GetContext(ctx, &user, s.DB.Rebind(query), arg); err != nil {
		return nil, err
	}
	s.hydrateUser(&user)
	return &user, nil
}

func (s *Store) hydrateUser(user *cms_fields.User) {
	if user.TOTPSecret == "" {
		return
	}
	plain, err := s.box.Open(purposeTOTP, user.TOTPSecret)
	if err != nil {
		// two-factor stays on with no secret; callers must refuse every code
		user.TOTPSecret = ""
		return
	}
	user.TOTPSecret = plain
}

func (s *Store) ListUsers(ctx context.Context) ([]cms_fields.User, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	users := []cms_fields.User{}
	if err := db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY id ASC"); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].TOTPSecret = ""
	}
	return users, nil
}

// ErrLastAdmin is returned when a write would leave no admin account.
var ErrLastAdmin = errors.New("store: at least one admin must remain")

// keepsAnAdmin is appended to the WHERE clause of writes that may remove an admin. The row
// qualifies when it is not an admin or another admin exists.
const keepsAnAdmin = ` AND (role <> ? OR (SELECT COUNT(*) FROM users WHERE role = ?) > 1)`

// UpdateUser changes name, role and email. Demoting the last admin fails with ErrLastAdmin.
func (s *Store) UpdateUser(ctx context.Context, user *cms_fields.User) error {
	user.SanitizeEmail()
	now := s.Now()
	query := "UPDATE users SET email = ?, name = ?, role = ?, updated_at = ? WHERE id = ?"
	args := []any{user.Email, user.Name, user.Role, now, user.ID}
	if user.Role != cms_fields.RoleAdmin {
		query += keepsAnAdmin
		args = append(args, cms_fields.RoleAdmin, cms_fields.RoleAdmin)
	}
	if err := s.adminGuardedExec(ctx, user.ID, query, args...); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

// adminGuardedExec runs a write carrying keepsAnAdmin in one transaction. Postgres locks
// the admin rows first so concurrent demotions queue behind each other; sqlite transactions
// already hold the write lock from BEGIN. No affected row means either a missing user
// (sql.ErrNoRows) or the guard refusing (ErrLastAdmin).
func (s *Store) adminGuardedExec(ctx context.Context, id int64, query string, args ...any) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if s.DB.Driver == DriverPostgres {
		var locked []int64
		if err := tx.SelectContext(ctx, &locked, "SELECT id FROM users WHERE role = $1 FOR UPDATE", cms_fields.RoleAdmin); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := tx.GetContext(ctx, &exists, tx.Rebind("SELECT COUNT(*) FROM users WHERE id = ?"), id); err != nil {
			return err
		}
		if exists == 0 {
			return sql.ErrNoRows
		}
		return ErrLastAdmin
	}
	return tx.Commit()
}

// UpdatePassword stores an already hashed password.
func (s *Store) UpdatePassword(ctx context.Context, id int64, hashed string) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, s.DB.Rebind("UPDATE users SET password = ?, updated_at = ? WHERE id = ?"), hashed, s.Now(), id)
	return affected(res, err)
}

// SetTOTP stores the user's TOTP secret, encrypted when a data key is configured. An empty
// secret with enabled=false turns two-factor off.
func (s *Store) SetTOTP(ctx context.Context, id int64, secret string, enabled bool) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	stored, err := s.box.Seal(purposeTOTP, secret)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, s.DB.Rebind("UPDATE users SET totp_secret = ?, totp_enabled = ?, updated_at = ? WHERE id = ?"),
		stored, enabled, s.Now(), id)
	return affected(res, err)
}

func (s *Store) TouchLogin(ctx context.Context, id int64) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, s.DB.Rebind("UPDATE users SET last_login_at = ? WHERE id = ?"), sql.NullTime{Time: s.Now(), Valid: true}, id)
	return err
}

// DeleteUser removes a user. Deleting the last admin fails with ErrLastAdmin.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.adminGuardedExec(ctx, id, "DELETE FROM users WHERE id = ?"+keepsAnAdmin, id, cms_fields.RoleAdmin, cms_fields.RoleAdmin)
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	db, err := s.ensureDB()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.GetContext(ctx, &n, s.DB.Rebind("SELECT COUNT(*) FROM users WHERE role = ?"), cms_fields.RoleAdmin)
	return n, err
}
