package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"leaseflow/internal/apperror"
	"leaseflow/internal/model"
	"leaseflow/internal/repository"
	"leaseflow/internal/visibility"

	"github.com/google/uuid"
)

// DTOs for Request validation
type RegisterUserRequest struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role"`
	FullName      string `json:"full_name"`
	CompanyName   string `json:"company_name"`
	Phone         string `json:"phone"`
}

type UserResponse struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"email_verified"`
	FullName      string     `json:"full_name"`
	CompanyName   string     `json:"company_name"`
	Phone         string     `json:"phone"`
	Role          model.Role `json:"role"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     string     `json:"created_at"`
}

// UserService manages the local user directory. Identities are issued by the
// external provider; this service only maps them to roles and contact details.
type UserService interface {
	RegisterUser(ctx context.Context, p visibility.Principal, req RegisterUserRequest) (*UserResponse, error)
	ListUsers(ctx context.Context, p visibility.Principal, role model.Role, page, limit int) ([]UserResponse, int64, error)
	Me(ctx context.Context, p visibility.Principal) (*UserResponse, error)
	// Resolve loads the caller named by a verified token. Unknown and inactive
	// users are both refused.
	Resolve(ctx context.Context, id uuid.UUID) (visibility.Principal, error)
	// EnsureAdmin creates an active, verified admin for email unless a user
	// with that email exists. Used at start-up to seed an empty directory.
	EnsureAdmin(ctx context.Context, email string) (*UserResponse, error)
}

type userService struct {
	base
}

// NewUserService returns a new instance of UserService
func NewUserService(deps Deps) UserService {
	return &userService{base: newBase(deps)}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		FullName:      user.FullName,
		CompanyName:   user.CompanyName,
		Phone:         user.Phone,
		Role:          user.Role,
		IsActive:      user.IsActive,
		CreatedAt:     user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *userService) RegisterUser(ctx context.Context, p visibility.Principal, req RegisterUserRequest) (*UserResponse, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.register(ctx, p.UserID, req)
}

func (s *userService) EnsureAdmin(ctx context.Context, email string) (*UserResponse, error) {
	existing, err := s.store().Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return mapToResponse(existing), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Internal("failed to look up user", err)
	}
	return s.register(ctx, uuid.Nil, RegisterUserRequest{
		Email:         email,
		EmailVerified: true,
		Role:          string(model.RoleAdmin),
		FullName:      "Administrator",
	})
}

// register stores a new user. A nil actor records a system action.
func (s *userService) register(ctx context.Context, actor uuid.UUID, req RegisterUserRequest) (*UserResponse, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, apperror.Validation("invalid role", map[string]interface{}{"role": req.Role})
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, apperror.Validation("invalid email format", map[string]interface{}{"email": req.Email})
	}
	email := strings.ToLower(addr.Address)

	user := &model.User{
		Email:         email,
		EmailVerified: req.EmailVerified,
		FullName:      req.FullName,
		CompanyName:   req.CompanyName,
		Phone:         req.Phone,
		Role:          role,
		IsActive:      true,
	}
	err = s.store().Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.store().Users.GetByEmail(txCtx, email); err == nil {
			return apperror.Validation("email already exists", map[string]interface{}{"email": email})
		} else if !errors.Is(err, repository.ErrNotFound) {
			return apperror.Internal("failed to look up user", err)
		}
		if err := s.store().Users.Create(txCtx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperror.Validation("email already exists", map[string]interface{}{"email": email})
			}
			return apperror.Internal("failed to create user", err)
		}
		return s.audit(txCtx, auditEntry{
			actor:      actor,
			action:     model.ActionRegisterUser,
			entityType: model.EntityUser,
			entityID:   user.ID,
			details:    map[string]interface{}{"email": email, "role": string(role)},
		})
	})
	if err != nil {
		return nil, err
	}
	s.deps.Log.Info("User registered", map[string]interface{}{
		"user_id": user.ID.String(),
		"role":    string(role),
	})
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, p visibility.Principal, role model.Role, page, limit int) ([]UserResponse, int64, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	users, total, err := s.store().Users.List(ctx, role, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to list users", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) Me(ctx context.Context, p visibility.Principal) (*UserResponse, error) {
	user, err := s.store().Users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, fromRepo(err, model.EntityUser, p.UserID)
	}
	return mapToResponse(user), nil
}

func (s *userService) Resolve(ctx context.Context, id uuid.UUID) (visibility.Principal, error) {
	user, err := s.store().Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return visibility.Principal{}, apperror.Forbidden("unknown user")
	}
	if err != nil {
		return visibility.Principal{}, apperror.Internal("failed to load user", err)
	}
	if !user.IsActive {
		return visibility.Principal{}, apperror.Forbidden("account is disabled")
	}
	return visibility.FromUser(user), nil
}
