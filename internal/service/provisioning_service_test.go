package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/notify"
	"bloodlink-backend/internal/repository/memory"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func approvedApplication(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()
	id, err := f.applications.Submit(ctx, validRegistration())
	require.NoError(t, err)
	_, err = f.applications.SetStatus(ctx, id, models.ActionApprove, "admin-1", "looks good")
	require.NoError(t, err)
	return id
}

func TestProvisionRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.applications.Submit(ctx, validRegistration())
	require.NoError(t, err)

	_, err = f.provisioning.ProvisionFromApproved(ctx, id, "admin-1")
	assert.ErrorIs(t, err, apperror.ErrPreconditionFailed)

	hospitals, _ := f.hospitals.List(ctx)
	assert.Empty(t, hospitals)
}

func TestProvisionComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := approvedApplication(t, f)

	res, err := f.provisioning.ProvisionFromApproved(ctx, id, "admin-1")
	require.NoError(t, err)
	assert.False(t, res.Partial)
	assert.Nil(t, res.Warning)
	require.NotNil(t, res.UserID)
	assert.Equal(t, noticeComplete, res.Notice)

	hospital, err := f.hospitals.GetByID(ctx, res.HospitalID)
	require.NoError(t, err)
	assert.Equal(t, "Metro General", hospital.Name)
	assert.Equal(t, models.ApplicationApproved, hospital.VerificationStatus)
	assert.Equal(t, "https://docs.test/license.pdf", hospital.LicenseDocumentURL)
	assert.Equal(t, "admin-1", *hospital.VerifiedBy)

	user, err := f.users.FindByID(ctx, *res.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleHospitalStaff, user.Role)
	assert.Equal(t, "ada@metro.test", user.Email)
	ok, _ := f.memberships.HasAccess(ctx, user.ID, hospital.ID)
	assert.True(t, ok)

	app, _ := f.applications.Get(ctx, id)
	assert.Equal(t, res.HospitalID, *app.HospitalID)
	assert.Equal(t, *res.UserID, *app.UserID)
	assert.Nil(t, app.TempPasswordHash, "one-time password is consumed")

	approvedMail := f.notifier.byTemplate(notify.ApplicationApproved)
	require.Len(t, approvedMail, 1)
	assert.Equal(t, noticeComplete, approvedMail[0].data["notice"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProvisioningOutcomes.WithLabelValues("complete")))

	// staff log in with the password chosen at registration
	login, err := f.auth.Login(ctx, "ADA@metro.test", "harbor-light-7")
	require.NoError(t, err)
	assert.Equal(t, hospital.ID, login.User.HospitalID)
}

func TestProvisionPartialWhenPasswordMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedApplication(t, models.Application{
		ID:           "app-backchannel",
		RepFirstName: "Grace",
		RepEmail:     "grace@harbor.test",
		HospitalName: "Harbor Clinic",
		City:         "Metropolis",
		Status:       models.ApplicationApproved,
		Documents:    []models.Document{{Kind: models.DocumentLicense, URL: "https://docs.test/l.pdf"}},
	})

	res, err := f.provisioning.ProvisionFromApproved(ctx, "app-backchannel", "admin-1")
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Nil(t, res.UserID)
	assert.Equal(t, noticeNoLogin, res.Notice)
	assert.ErrorIs(t, res.Warning, apperror.ErrCredentialMissing)

	hospital, err := f.hospitals.GetByID(ctx, res.HospitalID)
	require.NoError(t, err, "hospital creation is not rolled back")
	assert.Equal(t, models.ApplicationApproved, hospital.VerificationStatus)

	app, _ := f.applications.Get(ctx, "app-backchannel")
	require.NotNil(t, app.HospitalID, "linking happens regardless of the account outcome")
	assert.Equal(t, res.HospitalID, *app.HospitalID)
	assert.Nil(t, app.UserID)

	steps := map[string]StepOutcome{}
	for _, s := range res.Steps {
		steps[s.Step] = s
	}
	assert.True(t, steps[StepHospital].OK)
	assert.False(t, steps[StepAccount].OK)
	assert.True(t, steps[StepLink].OK)
	assert.False(t, steps[StepAccount].CredentialConsumed)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProvisioningOutcomes.WithLabelValues("partial")))
}

func TestProvisionRetryReusesHospital(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := approvedApplication(t, f)

	first, err := f.provisioning.ProvisionFromApproved(ctx, id, "admin-1")
	require.NoError(t, err)
	second, err := f.provisioning.ProvisionFromApproved(ctx, id, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, first.HospitalID, second.HospitalID)
	assert.Equal(t, *first.UserID, *second.UserID)
	assert.False(t, second.Partial)

	hospitals, _ := f.hospitals.List(ctx)
	assert.Len(t, hospitals, 1)
}

type failingAccounts struct{}

func (failingAccounts) CreateAccount(context.Context, AccountRequest) (string, error) {
	return "", apperror.Upstream("identity provider", errors.New("timeout"))
}

func TestProvisionAccountFailureIsPartial(t *testing.T) {
	f := newFixture(t)
	f.provisioning = NewProvisioningService(f.apps, f.hospitals, failingAccounts{}, f.notifier, f.metrics, zap.NewNop())
	ctx := context.Background()
	id := approvedApplication(t, f)

	res, err := f.provisioning.ProvisionFromApproved(ctx, id, "admin-1")
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Nil(t, res.UserID)
	assert.ErrorIs(t, res.Warning, apperror.ErrUpstreamUnavailable)

	assert.Equal(t, noticeSpent, res.Notice)

	var account StepOutcome
	for _, st := range res.Steps {
		if st.Step == StepAccount {
			account = st
		}
	}
	assert.False(t, account.OK)
	assert.True(t, account.CredentialConsumed)

	app, _ := f.applications.Get(ctx, id)
	assert.Nil(t, app.TempPasswordHash, "a consumed credential is never reused")

	// the retry can no longer create the account
	again, err := f.provisioning.ProvisionFromApproved(ctx, id, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, res.HospitalID, again.HospitalID)
	assert.ErrorIs(t, again.Warning, apperror.ErrCredentialMissing)
	assert.Equal(t, noticeNoLogin, again.Notice)
}

// lateHospitals hides the first lookup result, as if another run created the
// hospital between the lookup and the insert.
type lateHospitals struct {
	*memory.HospitalStore
	mu     sync.Mutex
	missed bool
}

func (h *lateHospitals) GetByApplicationID(ctx context.Context, applicationID string) (*models.Hospital, error) {
	h.mu.Lock()
	first := !h.missed
	h.missed = true
	h.mu.Unlock()
	if first {
		return nil, apperror.NotFound("hospital", applicationID)
	}
	return h.HospitalStore.GetByApplicationID(ctx, applicationID)
}

func TestProvisionReusesHospitalCreatedConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := approvedApplication(t, f)

	require.NoError(t, f.hospitals.Create(ctx, &models.Hospital{
		ID: "h-first", ApplicationID: id, Name: "Metro General",
		VerificationStatus: models.ApplicationApproved, IsActive: true,
	}))
	hospitals := &lateHospitals{HospitalStore: f.hospitals}
	p := NewProvisioningService(f.apps, hospitals, NewLocalAccountProvisioner(f.users, f.memberships), f.notifier, f.metrics, zap.NewNop())

	res, err := p.ProvisionFromApproved(ctx, id, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "h-first", res.HospitalID)
	assert.True(t, res.Steps[0].Skipped)

	all, _ := f.hospitals.List(ctx)
	assert.Len(t, all, 1)
	app, _ := f.applications.Get(ctx, id)
	assert.Equal(t, "h-first", *app.HospitalID)
}

func TestProvisionConcurrentRunsShareOneHospital(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := approvedApplication(t, f)

	const runs = 8
	results := make([]*ProvisionResult, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.provisioning.ProvisionFromApproved(ctx, id, "admin-1")
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].HospitalID, results[i].HospitalID)
		if results[i].UserID != nil {
			assert.Equal(t, *results[0].UserID, *results[i].UserID)
		}
		if !results[i].Steps[0].Skipped {
			created++
		}
	}
	assert.Equal(t, 1, created)

	all, _ := f.hospitals.List(ctx)
	assert.Len(t, all, 1)
	app, _ := f.applications.Get(ctx, id)
	assert.Equal(t, results[0].HospitalID, *app.HospitalID)
	require.NotNil(t, app.UserID, "the run that consumed the password links the account")
}

func TestLocalAccountProvisionerRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	p := NewLocalAccountProvisioner(f.users, f.memberships)
	ctx := context.Background()

	req := AccountRequest{Email: "staff@metro.test", PasswordHash: "hash", HospitalID: "h1"}
	_, err := p.CreateAccount(ctx, req)
	require.NoError(t, err)

	_, err = p.CreateAccount(ctx, req)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = p.CreateAccount(ctx, AccountRequest{Email: "x@metro.test", HospitalID: "h1"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
