package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/pkg/geo"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrStaleStatus is returned by conditional updates when the row's status no longer
// matches the expected one. Callers re-read to report the actual state.
var ErrStaleStatus = errors.New("status changed concurrently")

// ErrDuplicate is returned when an insert hits a unique key.
var ErrDuplicate = errors.New("duplicate key")

// mysqlDuplicateEntry is MySQL's ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// ApplicationStore persists hospital applications and their audit log.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application, entry *models.AuditEntry) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	ListByStatus(ctx context.Context, status models.ApplicationStatus, search string) ([]models.Application, error)
	// UpdateStatus applies change only if the stored status still equals expected,
	// appending entry in the same transaction.
	UpdateStatus(ctx context.Context, id string, expected models.ApplicationStatus, change models.StatusChange, entry *models.AuditEntry) error
	// ConsumeTempPassword returns the stored password hash and clears it atomically.
	// It returns "" when nothing is stored.
	ConsumeTempPassword(ctx context.Context, id string) (string, error)
	LinkProvisioned(ctx context.Context, id, hospitalID string, userID *string) error
	ListAudit(ctx context.Context, applicationID string) ([]models.AuditEntry, error)
}

type HospitalStore interface {
	Create(ctx context.Context, hospital *models.Hospital) error
	GetByID(ctx context.Context, id string) (*models.Hospital, error)
	GetByApplicationID(ctx context.Context, applicationID string) (*models.Hospital, error)
	List(ctx context.Context) ([]models.Hospital, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Hospital, error)
	UpdateLocation(ctx context.Context, id string, point geo.Point) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	RevokeRefreshTokenByHash(ctx context.Context, hash string) error
}

type UserHospitalStore interface {
	Assign(ctx context.Context, userID, hospitalID string) error
	HospitalsForUser(ctx context.Context, userID string) ([]string, error)
	HasAccess(ctx context.Context, userID, hospitalID string) (bool, error)
}

type DonorStore interface {
	Upsert(ctx context.Context, donor *models.Donor) error
	GetByID(ctx context.Context, id string) (*models.Donor, error)
	GetByUserID(ctx context.Context, userID string) (*models.Donor, error)
	// ListVisible returns available, public donors with a location inside box.
	ListVisible(ctx context.Context, box geo.Box) ([]models.Donor, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Donor, error)
}

type BloodRequestStore interface {
	Create(ctx context.Context, req *models.BloodRequest) error
	GetByID(ctx context.Context, id string) (*models.BloodRequest, error)
	// ListActive returns active requests with a location inside box.
	ListActive(ctx context.Context, box geo.Box) ([]models.BloodRequest, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.BloodRequest, error)
	UpdateStatus(ctx context.Context, id string, expected, next models.RequestStatus) error
	// ListExpired returns active requests whose needed-by time is before now.
	ListExpired(ctx context.Context, now time.Time) ([]models.BloodRequest, error)
}

type ConnectionStore interface {
	Create(ctx context.Context, conn *models.DonationConnection) error
	GetByID(ctx context.Context, id string) (*models.DonationConnection, error)
	FindPending(ctx context.Context, donorID, requestID string) (*models.DonationConnection, error)
	ListByHospital(ctx context.Context, hospitalID string, status models.ConnectionStatus) ([]models.DonationConnection, error)
	// Resolve writes res only if the connection is still pending.
	Resolve(ctx context.Context, id string, res models.Resolution) error
}

// translate maps gorm errors onto the application taxonomy.
func translate(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity, id)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var myErr *mysql.MySQLError
	if errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry) {
		return fmt.Errorf("%s %s: %w", entity, id, ErrDuplicate)
	}
	return apperror.Upstream("database", err)
}
