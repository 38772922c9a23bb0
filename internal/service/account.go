package service

import (
	"context"
	"errors"
	"time"

	"github.com/ostrikov/auth-service/internal/hash"
	"github.com/ostrikov/auth-service/internal/models"
	"github.com/ostrikov/auth-service/internal/repo"
	"github.com/ostrikov/auth-service/internal/tokens"
	"github.com/ostrikov/auth-service/pkg/logging"
)

// ErrInvalidInput marks an absent request; the HTTP layer maps it to 400.
// Every other business outcome is a Result/AuthResult with Success=false.
var ErrInvalidInput = errors.New("request is empty")

var errDuplicateEmail = errors.New("email is already registered")

type AccountService struct {
	Repo   repo.GormRepo
	Issuer *tokens.Issuer
}

type RegisterRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Token string `json:"token"`
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type AuthResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func authFailure(message string) *AuthResult {
	return &AuthResult{Success: false, Message: message}
}

// Register creates the user and assigns its role in one transaction, so the
// duplicate-email check and the insert cannot interleave with a concurrent
// registration for the same address.
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*Result, error) {
	l := logging.FromContext(ctx).With("svc", "account.register")
	if req == nil {
		return nil, ErrInvalidInput
	}

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		existing, err := tx.FindUserByEmail(ctx, req.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return errDuplicateEmail
		}

		// Only spend the bcrypt cost once the address is known to be free.
		pwHash, err := hash.HashPassword(req.Password)
		if err != nil {
			return err
		}

		user := &models.User{
			FullName:     req.FullName,
			Email:        req.Email,
			PasswordHash: pwHash,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}

		// The gate is the existence of an Admin role row, not a user
		// count: delete the Admin role out-of-band and the next
		// registrant becomes Admin again.
		adminRole, err := tx.FindRoleByName(ctx, models.RoleAdmin)
		if err != nil {
			return err
		}
		if adminRole == nil {
			created, err := tx.CreateRole(ctx, models.RoleAdmin)
			if err != nil {
				return err
			}
			return tx.AssignRole(ctx, user.ID, created.ID)
		}

		userRole, err := tx.FindRoleByName(ctx, models.RoleUser)
		if err != nil {
			return err
		}
		if userRole == nil {
			userRole, err = tx.CreateRole(ctx, models.RoleUser)
			if err != nil {
				return err
			}
		}
		return tx.AssignRole(ctx, user.ID, userRole.ID)
	})
	if errors.Is(err, errDuplicateEmail) {
		l.Warn("register rejected", "reason", "duplicate email")
		return &Result{Success: false, Message: "email is already registered"}, nil
	}
	if err != nil {
		l.Error("register failed", "error", err)
		return nil, err
	}

	l.Info("user registered")
	return &Result{Success: true, Message: "user created successfully"}, nil
}

func (s *AccountService) SignIn(ctx context.Context, req *SignInRequest) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "account.signin")
	if req == nil {
		return nil, ErrInvalidInput
	}

	user, err := s.Repo.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		l.Warn("signin rejected", "reason", "unknown email")
		return authFailure("email does not exist"), nil
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("signin rejected", "reason", "bad password", "user_id", user.ID)
		return authFailure("password is incorrect"), nil
	}

	role, err := s.resolveRole(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		l.Error("signin rejected", "reason", "role missing", "user_id", user.ID)
		return authFailure("user role is not assigned"), nil
	}

	accessToken, refreshToken, err := s.issueTokens(user, role.Name)
	if err != nil {
		l.Error("signin failed", "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	existing, err := s.Repo.FindRefreshByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		err = s.Repo.UpdateRefreshToken(ctx, user.ID, refreshToken)
	} else {
		err = s.Repo.CreateRefreshToken(ctx, user.ID, refreshToken)
	}
	if err != nil {
		return nil, err
	}

	l.Info("signin successful", "user_id", user.ID)
	return &AuthResult{
		Success:      true,
		Message:      "login successful",
		Token:        accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AccountService) Refresh(ctx context.Context, req *RefreshRequest) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "account.refresh")
	if req == nil {
		return nil, ErrInvalidInput
	}

	info, err := s.Repo.FindRefreshByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if info == nil {
		l.Warn("refresh rejected", "reason", "token not found")
		return authFailure("refresh token not found"), nil
	}

	user, err := s.Repo.FindUserByID(ctx, info.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		l.Warn("refresh rejected", "reason", "user gone", "user_id", info.UserID)
		return authFailure("user for refresh token no longer exists"), nil
	}

	role, err := s.resolveRole(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		l.Error("refresh rejected", "reason", "role missing", "user_id", user.ID)
		return authFailure("user role is not assigned"), nil
	}

	accessToken, refreshToken, err := s.issueTokens(user, role.Name)
	if err != nil {
		l.Error("refresh failed", "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	// Distinct from "token not found": a missing per-user row means the
	// user never completed a sign-in.
	existing, err := s.Repo.FindRefreshByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		l.Warn("refresh rejected", "reason", "no refresh row", "user_id", user.ID)
		return authFailure("user has not signed in"), nil
	}
	if err := s.Repo.UpdateRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, err
	}

	l.Info("refresh successful", "user_id", user.ID)
	return &AuthResult{
		Success:      true,
		Message:      "token refreshed successfully",
		Token:        accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// resolveRole returns nil without error when the user-role link or the role
// row is missing; callers report that as a business failure.
func (s *AccountService) resolveRole(ctx context.Context, userID uint) (*models.Role, error) {
	link, err := s.Repo.FindUserRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, nil
	}
	return s.Repo.FindRoleByID(ctx, link.RoleID)
}

func (s *AccountService) issueTokens(user *models.User, roleName string) (string, string, error) {
	accessToken, err := s.Issuer.NewAccessToken(user, roleName, time.Now())
	if err != nil {
		return "", "", err
	}
	refreshToken, err := tokens.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}
