package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
)

var errWeakPassword = errors.New("password needs 8+ characters with an upper-case letter, a digit and a symbol")

// createUser validates req the same way the admin API does and stores the account.
func createUser(ctx context.Context, st *store.Store, req cms_fields.UserRequest) (*cms_fields.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := cms_fields.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("invalid user: %v", cms_fields.ValidationDetails(err))
	}
	if !cms_fields.ValidatePassword(req.Password) {
		return nil, errWeakPassword
	}
	user := cms_fields.User{Email: req.Email, Name: req.Name, Role: req.Role}
	if err := user.HashPassword(req.Password); err != nil {
		return nil, err
	}
	if err := st.CreateUser(ctx, &user); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("a user with email %s already exists", user.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}
