package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"
	"bloodlink-backend/pkg/geo"

	"github.com/stretchr/testify/suite"
)

// StoreSuite exercises the conditional-update behavior shared with the gorm stores.
type StoreSuite struct {
	suite.Suite
	ctx context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
}

func ptr[T any](v T) *T { return &v }

func (s *StoreSuite) TestApplicationUpdateStatus() {
	store := NewApplicationStore()
	app := &models.Application{ID: "app-1", Status: models.ApplicationPending, HospitalName: "Metro"}
	s.Require().NoError(store.Create(s.ctx, app, &models.AuditEntry{ID: "a1", ApplicationID: "app-1", Action: models.AuditSubmitted}))

	change := models.StatusChange{
		Transition: models.Transition{From: models.ApplicationPending, To: models.ApplicationApproved, Audit: models.AuditApproved},
		ActorID:    ptr("admin-1"),
		At:         time.Now(),
	}

	s.Run("applies when status matches", func() {
		err := store.UpdateStatus(s.ctx, "app-1", models.ApplicationPending, change, &models.AuditEntry{ID: "a2", ApplicationID: "app-1", Action: models.AuditApproved})
		s.Require().NoError(err)

		got, err := store.GetByID(s.ctx, "app-1")
		s.Require().NoError(err)
		s.Equal(models.ApplicationApproved, got.Status)
		s.Equal("admin-1", *got.VerifiedBy)
	})

	s.Run("stale status leaves no audit entry", func() {
		err := store.UpdateStatus(s.ctx, "app-1", models.ApplicationPending, change, &models.AuditEntry{ID: "a3", ApplicationID: "app-1"})
		s.ErrorIs(err, repository.ErrStaleStatus)

		entries, err := store.ListAudit(s.ctx, "app-1")
		s.Require().NoError(err)
		s.Len(entries, 2)
	})
}

func (s *StoreSuite) TestApplicationsAreCopies() {
	store := NewApplicationStore()
	app := &models.Application{ID: "app-1", Status: models.ApplicationPending, Documents: []models.Document{{Kind: models.DocumentLicense, URL: "u"}}}
	s.Require().NoError(store.Create(s.ctx, app, &models.AuditEntry{ID: "a1", ApplicationID: "app-1"}))

	got, err := store.GetByID(s.ctx, "app-1")
	s.Require().NoError(err)
	got.Status = models.ApplicationRejected
	got.Documents[0].URL = "changed"

	again, _ := store.GetByID(s.ctx, "app-1")
	s.Equal(models.ApplicationPending, again.Status)
	s.Equal("u", again.Documents[0].URL)
}

func (s *StoreSuite) TestListByStatusSearch() {
	store := NewApplicationStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, a := range []models.Application{
		{ID: "1", HospitalName: "Metro General", City: "Metropolis", Status: models.ApplicationPending},
		{ID: "2", HospitalName: "Gotham Clinic", City: "Gotham", OfficialPhone: "555-0100", Status: models.ApplicationPending},
		{ID: "3", HospitalName: "Metro East", City: "Metropolis", Status: models.ApplicationRejected},
	} {
		a.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		s.Require().NoError(store.Create(s.ctx, &a, &models.AuditEntry{ID: a.ID, ApplicationID: a.ID}))
	}

	all, err := store.ListByStatus(s.ctx, models.ApplicationPending, "")
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("2", all[0].ID, "newest first")

	hits, err := store.ListByStatus(s.ctx, models.ApplicationPending, "METRO")
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("1", hits[0].ID)

	hits, err = store.ListByStatus(s.ctx, models.ApplicationPending, "0100")
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("2", hits[0].ID)

	for _, wildcard := range []string{"_", "%"} {
		hits, err = store.ListByStatus(s.ctx, models.ApplicationPending, wildcard)
		s.Require().NoError(err)
		s.Empty(hits, "%q is matched literally", wildcard)
	}
}

func (s *StoreSuite) TestHospitalOnePerApplication() {
	store := NewHospitalStore()
	s.Require().NoError(store.Create(s.ctx, &models.Hospital{ID: "h1", ApplicationID: "app-1", Name: "Metro", IsActive: true}))

	err := store.Create(s.ctx, &models.Hospital{ID: "h2", ApplicationID: "app-1", Name: "Metro again", IsActive: true})
	s.ErrorIs(err, repository.ErrDuplicate)
	err = store.Create(s.ctx, &models.Hospital{ID: "h1", ApplicationID: "app-2", Name: "Same id", IsActive: true})
	s.ErrorIs(err, repository.ErrDuplicate)

	got, err := store.GetByApplicationID(s.ctx, "app-1")
	s.Require().NoError(err)
	s.Equal("h1", got.ID)
	all, _ := store.List(s.ctx)
	s.Len(all, 1)
}

func (s *StoreSuite) TestConsumeTempPasswordOnce() {
	store := NewApplicationStore()
	s.Require().NoError(store.Create(s.ctx, &models.Application{ID: "app-1", TempPasswordHash: ptr("hash")}, &models.AuditEntry{ID: "a"}))

	var got []string
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := store.ConsumeTempPassword(s.ctx, "app-1")
			s.NoError(err)
			if h != "" {
				mu.Lock()
				got = append(got, h)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal([]string{"hash"}, got)
}

func (s *StoreSuite) TestConnectionResolveSingleWinner() {
	store := NewConnectionStore()
	s.Require().NoError(store.Create(s.ctx, &models.DonationConnection{ID: "c1", Status: models.ConnectionPending}))

	var wins, stale int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(accept bool) {
			defer wg.Done()
			status := models.ConnectionRejected
			if accept {
				status = models.ConnectionAccepted
			}
			err := store.Resolve(s.ctx, "c1", models.Resolution{Status: status, StaffID: "staff", At: time.Now()})
			if err == nil {
				atomic.AddInt32(&wins, 1)
			} else if err == repository.ErrStaleStatus {
				atomic.AddInt32(&stale, 1)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	s.Equal(int32(1), wins)
	s.Equal(int32(9), stale)
}

func (s *StoreSuite) TestFindPending() {
	store := NewConnectionStore()
	s.Require().NoError(store.Create(s.ctx, &models.DonationConnection{ID: "c1", DonorID: "d", BloodRequestID: "r", Status: models.ConnectionRejected}))

	got, err := store.FindPending(s.ctx, "d", "r")
	s.Require().NoError(err)
	s.Nil(got)

	s.Require().NoError(store.Create(s.ctx, &models.DonationConnection{ID: "c2", DonorID: "d", BloodRequestID: "r", Status: models.ConnectionPending}))
	got, err = store.FindPending(s.ctx, "d", "r")
	s.Require().NoError(err)
	s.Equal("c2", got.ID)
}

func (s *StoreSuite) TestDonorListVisible() {
	store := NewDonorStore()
	donors := []models.Donor{
		{ID: "near", UserID: "u1", Latitude: ptr(0.0), Longitude: ptr(0.1), IsAvailable: true, VisibilityPublic: true},
		{ID: "private", UserID: "u2", Latitude: ptr(0.0), Longitude: ptr(0.1), IsAvailable: true, VisibilityPublic: false},
		{ID: "busy", UserID: "u3", Latitude: ptr(0.0), Longitude: ptr(0.1), IsAvailable: false, VisibilityPublic: true},
		{ID: "nowhere", UserID: "u4", IsAvailable: true, VisibilityPublic: true},
		{ID: "far", UserID: "u5", Latitude: ptr(40.0), Longitude: ptr(40.0), IsAvailable: true, VisibilityPublic: true},
	}
	for i := range donors {
		s.Require().NoError(store.Upsert(s.ctx, &donors[i]))
	}

	box, err := geo.BoundingBox(geo.Point{}, 50)
	s.Require().NoError(err)
	got, err := store.ListVisible(s.ctx, box)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("near", got[0].ID)
}

func (s *StoreSuite) TestDonorUpsertKeepsID() {
	store := NewDonorStore()
	s.Require().NoError(store.Upsert(s.ctx, &models.Donor{ID: "d1", UserID: "u1", BloodType: "O+"}))

	update := &models.Donor{ID: "ignored", UserID: "u1", BloodType: "A-"}
	s.Require().NoError(store.Upsert(s.ctx, update))
	s.Equal("d1", update.ID)

	got, err := store.GetByUserID(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("A-", got.BloodType)
}

func (s *StoreSuite) TestBloodRequestExpiry() {
	store := NewBloodRequestStore()
	now := time.Now()
	s.Require().NoError(store.Create(s.ctx, &models.BloodRequest{ID: "old", Status: models.RequestActive, NeededBy: ptr(now.Add(-time.Hour))}))
	s.Require().NoError(store.Create(s.ctx, &models.BloodRequest{ID: "future", Status: models.RequestActive, NeededBy: ptr(now.Add(time.Hour))}))
	s.Require().NoError(store.Create(s.ctx, &models.BloodRequest{ID: "open", Status: models.RequestActive}))

	got, err := store.ListExpired(s.ctx, now)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("old", got[0].ID)

	s.Require().NoError(store.UpdateStatus(s.ctx, "old", models.RequestActive, models.RequestExpired))
	s.ErrorIs(store.UpdateStatus(s.ctx, "old", models.RequestActive, models.RequestExpired), repository.ErrStaleStatus)
	s.ErrorIs(store.UpdateStatus(s.ctx, "missing", models.RequestActive, models.RequestExpired), apperror.ErrNotFound)
}

func (s *StoreSuite) TestUsers() {
	users := NewUserStore()
	s.Require().NoError(users.Create(s.ctx, &models.User{ID: "u1", Email: "a@b.test"}))
	s.ErrorIs(users.Create(s.ctx, &models.User{ID: "u2", Email: "a@b.test"}), apperror.ErrValidation)

	s.Require().NoError(users.CreateRefreshToken(s.ctx, &models.RefreshToken{ID: "t", UserID: "u1", TokenHash: "h"}))
	tok, err := users.FindRefreshTokenByHash(s.ctx, "h")
	s.Require().NoError(err)
	s.Equal("a@b.test", tok.User.Email)

	s.Require().NoError(users.RevokeRefreshTokenByHash(s.ctx, "h"))
	_, err = users.FindRefreshTokenByHash(s.ctx, "h")
	s.ErrorIs(err, apperror.ErrNotFound)

	links := NewUserHospitalStore()
	s.Require().NoError(links.Assign(s.ctx, "u1", "h1"))
	ok, err := links.HasAccess(s.ctx, "u1", "h1")
	s.Require().NoError(err)
	s.True(ok)
	ok, _ = links.HasAccess(s.ctx, "u1", "h2")
	s.False(ok)
}
