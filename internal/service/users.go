package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/eyengage/engage-api/internal/model"
	q "github.com/eyengage/engage-api/internal/queue"
	"github.com/eyengage/engage-api/internal/repository"
	"github.com/eyengage/engage-api/internal/utils"
)

// UserService covers the small administrative surface: inviting accounts
// and granting roles. Invited accounts start inactive with a temporary
// password and must complete the first-login password change.
type UserService struct {
	users      UserStore
	notifier   Notifier
	bcryptCost int
}

func NewUserService(users UserStore, notifier Notifier, bcryptCost int) *UserService {
	return &UserService{users: users, notifier: notifier, bcryptCost: bcryptCost}
}

// Invite creates an employee account with a generated temporary password
// and enqueues the welcome mail carrying it.
func (s *UserService) Invite(ctx context.Context, fullName, email, department, fonction string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || fullName == "" {
		return model.User{}, fmt.Errorf("%w: full name and email required", ErrValidation)
	}
	temp, err := utils.TempPassword()
	if err != nil {
		return model.User{}, fmt.Errorf("generate temp password: %w", err)
	}
	hash, err := utils.HashPassword(temp, s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash temp password: %w", err)
	}
	u := model.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Department:   department,
		Fonction:     fonction,
		IsActive:     false,
		IsFirstLogin: true,
	}
	if err := s.users.Create(ctx, &u, model.RoleEmployee); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, fmt.Errorf("%w: email already registered", ErrValidation)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	if err := s.notifier.Publish(ctx, q.Notification{
		Kind:           q.KindUserInvited,
		RecipientEmail: u.Email,
		RecipientName:  u.FullName,
		Secret:         temp,
		OccurredAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("users: invite notification dropped for %s: %v", u.Email, err)
	}
	return u, nil
}

// GrantRole adds a role to a user. Granting an already-held role is a
// validation error, not a silent no-op.
func (s *UserService) GrantRole(ctx context.Context, userID, role string) error {
	switch role {
	case model.RoleSuperAdmin, model.RoleAgent, model.RoleEmployee:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	err := s.users.AddRole(ctx, userID, role)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: role already granted", ErrValidation)
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	}
	return err
}

// Get returns a user profile by id.
func (s *UserService) Get(ctx context.Context, userID string) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrNotFound
	}
	return u, err
}
