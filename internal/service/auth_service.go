package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned for any failed login, without saying which part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	users       repository.UserStore
	memberships repository.UserHospitalStore
	log         *zap.Logger
}

func NewAuthService(users repository.UserStore, memberships repository.UserHospitalStore, log *zap.Logger) *AuthService {
	return &AuthService{
		users:       users,
		memberships: memberships,
		log:         log.Named("auth"),
	}
}

// LoginResponse represents the response structure for login
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	HospitalID string `json:"hospital_id,omitempty"`
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.ComparePassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", zap.String("userId", user.ID), zap.String("role", user.Role))
	return resp, nil
}

// RefreshAccessToken generates a new access token from a refresh token
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	token, err := s.users.FindRefreshTokenByHash(ctx, utils.HashRefreshToken(refreshToken))
	if errors.Is(err, apperror.ErrNotFound) {
		return "", errors.New("invalid or revoked refresh token")
	}
	if err != nil {
		return "", err
	}
	if time.Now().After(token.ExpiresAt) {
		return "", errors.New("refresh token expired")
	}

	hospitalID, err := s.primaryHospital(ctx, &token.User)
	if err != nil {
		return "", err
	}
	accessToken, err := utils.GenerateAccessToken(token.User.ID, token.User.Role, hospitalID)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.users.RevokeRefreshTokenByHash(ctx, utils.HashRefreshToken(refreshToken))
}

// RegisterDonor creates a donor login. Staff accounts only come from provisioning.
func (s *AuthService) RegisterDonor(ctx context.Context, email, password, firstName, lastName string) (*LoginResponse, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.Validation("email", "email address is not valid")
	}
	if !utils.PasswordStrongEnough(password) {
		return nil, apperror.Validation("password", "password needs at least 8 characters including a letter and a digit")
	}

	user, err := s.createUser(ctx, email, password, models.RoleDonor, firstName, lastName)
	if err != nil {
		return nil, err
	}
	s.log.Info("donor registered", zap.String("userId", user.ID))
	return s.issueTokens(ctx, user)
}

// EnsureAdmin creates the bootstrap admin account if no user has that email yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	user, err := s.createUser(ctx, email, password, models.RoleAdmin, "", "")
	if err != nil {
		return err
	}
	s.log.Info("admin account seeded", zap.String("userId", user.ID))
	return nil
}

func (s *AuthService) createUser(ctx context.Context, email, password, role, firstName, lastName string) (*models.User, error) {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperror.Validation("email", "an account with this email already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*LoginResponse, error) {
	hospitalID, err := s.primaryHospital(ctx, user)
	if err != nil {
		return nil, err
	}

	accessToken, err := utils.GenerateAccessToken(user.ID, user.Role, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := utils.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	err = s.users.CreateRefreshToken(ctx, &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: utils.HashRefreshToken(refreshToken),
		ExpiresAt: time.Now().Add(utils.GetRefreshTokenExpiry()),
	})
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: UserResponse{
			ID:         user.ID,
			Email:      user.Email,
			Role:       user.Role,
			HospitalID: hospitalID,
		},
	}, nil
}

// primaryHospital returns the hospital a staff user works for; "" for other roles.
func (s *AuthService) primaryHospital(ctx context.Context, user *models.User) (string, error) {
	if user.Role != models.RoleHospitalStaff {
		return "", nil
	}
	ids, err := s.memberships.HospitalsForUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
