package cms_fields

import (
	"database/sql"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"

	bcryptCost = 10
)

// User is a dashboard account. Password and TOTPSecret never leave the server.
type User struct {
	ID          int64        `json:"id" db:"id"`
	Email       string       `json:"email" db:"email"`
	Name        string       `json:"name" db:"name"`
	Password    string       `json:"-" db:"password"`
	Role        string       `json:"role" db:"role"`
	TOTPSecret  string       `json:"-" db:"totp_secret"`
	TOTPEnabled bool         `json:"totp_enabled" db:"totp_enabled"`
	LastLoginAt sql.NullTime `json:"-" db:"last_login_at"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	out := struct {
		alias
		LastLoginAt *time.Time `json:"last_login_at"`
	}{alias: alias(u)}
	if u.LastLoginAt.Valid {
		out.LastLoginAt = &u.LastLoginAt.Time
	}
	return marshal(out)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) SanitizeEmail() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
}

func (u *User) HashPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// ValidatePassword requires at least 8 characters with an upper-case letter, a digit and a symbol.
func ValidatePassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var upper, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && digit && symbol
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"omitempty,len=6,numeric"`
}

type UserRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Name     string `json:"name" binding:"required,max=100"`
	Role     string `json:"role" binding:"required,oneof=admin editor"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,max=72"`
}

type TOTPRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}
