package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/orderdesk/apiserver/internal/auth"
	"github.com/orderdesk/apiserver/internal/dbx"
	"github.com/orderdesk/apiserver/internal/store"
	"github.com/orderdesk/apiserver/types"
)

// SignupInput carries the fields a new account is created from.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Remember bool
}

// UpdateUserInput carries a partial profile update; nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService encapsulates user use-cases.
type UserService struct {
	runner     dbx.Runner
	repos      store.Repositories
	events     EventPublisher
	bcryptCost int
}

func NewUserService(runner dbx.Runner, repos store.Repositories, events EventPublisher, bcryptCost int) *UserService {
	return &UserService{
		runner:     runner,
		repos:      repos,
		events:     publisherOrNop(events),
		bcryptCost: bcryptCost,
	}
}

// Signup creates a regular, active account. Admin rights are never taken from input.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (types.User, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" {
		return types.User{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}

	var user types.User
	err = s.runner.Tx(ctx, func(ctx context.Context, q dbx.DBTX) error {
		users := s.repos.Users(q)
		if _, err := users.GetByEmail(ctx, email); err == nil {
			return ErrConflict
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		var err error
		user, err = users.Create(ctx, types.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Active:       true,
			Remember:     in.Remember,
		})
		return err
	})
	if err != nil {
		return types.User{}, err
	}

	s.events.PublishUser(ctx, types.EventUserCreated, user)
	return user, nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password is too long", ErrInvalidInput)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *UserService) Get(ctx context.Context, actor types.User, id int) (types.User, error) {
	if err := Authorize(actor, id); err != nil {
		return types.User{}, err
	}
	var user types.User
	err := s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		var err error
		user, err = s.repos.Users(q).GetByID(ctx, id)
		return err
	})
	return user, err
}

// List pages through all accounts. Admin only.
func (s *UserService) List(ctx context.Context, actor types.User, offset, limit int) (Page[types.User], error) {
	if err := AuthorizeAdmin(actor); err != nil {
		return Page[types.User]{}, err
	}
	offset, limit = clampPage(offset, limit)

	page := Page[types.User]{Limit: limit, Offset: offset}
	err := s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		var err error
		page.Items, page.Total, err = s.repos.Users(q).List(ctx, offset, limit)
		return err
	})
	if err != nil {
		return Page[types.User]{}, err
	}
	return page, nil
}

func (s *UserService) Update(ctx context.Context, actor types.User, id int, in UpdateUserInput) (types.User, error) {
	if err := Authorize(actor, id); err != nil {
		return types.User{}, err
	}

	var hash string
	if in.Password != nil {
		if *in.Password == "" {
			return types.User{}, fmt.Errorf("%w: password must not be empty", ErrInvalidInput)
		}
		var err error
		if hash, err = s.hashPassword(*in.Password); err != nil {
			return types.User{}, err
		}
	}

	var user types.User
	err := s.runner.Tx(ctx, func(ctx context.Context, q dbx.DBTX) error {
		users := s.repos.Users(q)
		current, err := users.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			current.Name = strings.TrimSpace(*in.Name)
		}
		if in.Email != nil {
			email := NormalizeEmail(*in.Email)
			if email == "" {
				return fmt.Errorf("%w: email must not be empty", ErrInvalidInput)
			}
			if email != current.Email {
				if _, err := users.GetByEmail(ctx, email); err == nil {
					return ErrConflict
				} else if !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			current.Email = email
		}
		if hash != "" {
			current.PasswordHash = hash
		}

		user, err = users.Update(ctx, current)
		return err
	})
	return user, err
}

// Delete removes the account and, through the store, its tokens and orders.
func (s *UserService) Delete(ctx context.Context, actor types.User, id int, confirm bool) error {
	if err := Authorize(actor, id); err != nil {
		return err
	}
	if !confirm {
		return ErrConfirmationRequired
	}

	var user types.User
	err := s.runner.Tx(ctx, func(ctx context.Context, q dbx.DBTX) error {
		users := s.repos.Users(q)
		var err error
		user, err = users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.events.PublishUser(ctx, types.EventUserDeleted, user)
	return nil
}

// SetAdmin grants or revokes admin rights by email. Operator use only.
func (s *UserService) SetAdmin(ctx context.Context, email string, admin bool) error {
	return s.runner.Conn(ctx, func(ctx context.Context, q dbx.DBTX) error {
		return s.repos.Users(q).SetAdmin(ctx, NormalizeEmail(email), admin)
	})
}
