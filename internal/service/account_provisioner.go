package service

import (
	"context"
	"errors"
	"strings"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"

	"github.com/google/uuid"
)

// AccountRequest describes the staff account created for a provisioned hospital.
// PasswordHash is the bcrypt hash captured at registration; no plaintext reaches this point.
type AccountRequest struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	HospitalID   string
}

// AccountProvisioner creates login accounts. Failures are recoverable by an administrator.
type AccountProvisioner interface {
	CreateAccount(ctx context.Context, req AccountRequest) (string, error)
}

// LocalAccountProvisioner creates hospital_staff users and their hospital membership.
type LocalAccountProvisioner struct {
	users       repository.UserStore
	memberships repository.UserHospitalStore
}

func NewLocalAccountProvisioner(users repository.UserStore, memberships repository.UserHospitalStore) *LocalAccountProvisioner {
	return &LocalAccountProvisioner{users: users, memberships: memberships}
}

var _ AccountProvisioner = (*LocalAccountProvisioner)(nil)

func (p *LocalAccountProvisioner) CreateAccount(ctx context.Context, req AccountRequest) (string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return "", apperror.MissingField("email")
	}
	if req.PasswordHash == "" {
		return "", apperror.MissingField("password")
	}
	if req.HospitalID == "" {
		return "", apperror.MissingField("hospital_id")
	}

	_, err := p.users.FindByEmail(ctx, email)
	if err == nil {
		return "", apperror.Validation("email", "an account with this email already exists")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return "", err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: req.PasswordHash,
		Role:         models.RoleHospitalStaff,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return "", err
	}
	if err := p.memberships.Assign(ctx, user.ID, req.HospitalID); err != nil {
		return "", err
	}
	return user.ID, nil
}
