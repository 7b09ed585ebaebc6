package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"bloodlink-backend/internal/metrics"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/notify"
	"bloodlink-backend/internal/repository/memory"
	"bloodlink-backend/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	utils.SetBcryptCost(bcrypt.MinCost)
	utils.InitJWT("test-access", "test-refresh", 15*time.Minute, 24*time.Hour)
	os.Exit(m.Run())
}

type sentNotification struct {
	to   string
	tmpl notify.Template
	data map[string]string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, to string, tmpl notify.Template, data map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{to: to, tmpl: tmpl, data: data})
	return nil
}

func (r *recordingNotifier) byTemplate(tmpl notify.Template) []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotification
	for _, n := range r.sent {
		if n.tmpl == tmpl {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	apps        *memory.ApplicationStore
	hospitals   *memory.HospitalStore
	users       *memory.UserStore
	memberships *memory.UserHospitalStore
	donors      *memory.DonorStore
	requests    *memory.BloodRequestStore
	conns       *memory.ConnectionStore
	notifier    *recordingNotifier
	metrics     *metrics.Metrics

	applications *ApplicationService
	provisioning *ProvisioningService
	matching     *MatchingService
	connections  *ConnectionService
	auth         *AuthService
	hospitalSvc  *HospitalService
	donorSvc     *DonorService
	requestSvc   *RequestService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	f := &fixture{
		apps:        memory.NewApplicationStore(),
		hospitals:   memory.NewHospitalStore(),
		users:       memory.NewUserStore(),
		memberships: memory.NewUserHospitalStore(),
		donors:      memory.NewDonorStore(),
		requests:    memory.NewBloodRequestStore(),
		conns:       memory.NewConnectionStore(),
		notifier:    &recordingNotifier{},
		metrics:     metrics.New(prometheus.NewRegistry()),
	}
	accounts := NewLocalAccountProvisioner(f.users, f.memberships)
	f.applications = NewApplicationService(f.apps, f.notifier, f.metrics, "admin@bloodlink.test", log)
	f.provisioning = NewProvisioningService(f.apps, f.hospitals, accounts, f.notifier, f.metrics, log)
	f.matching = NewMatchingService(f.donors, f.requests, 500, f.metrics)
	f.connections = NewConnectionService(f.conns, f.donors, f.requests, f.hospitals, f.notifier, f.metrics, log)
	f.auth = NewAuthService(f.users, f.memberships, log)
	f.hospitalSvc = NewHospitalService(f.hospitals, f.memberships, log)
	f.donorSvc = NewDonorService(f.donors, log)
	f.requestSvc = NewRequestService(f.requests, f.hospitals, log)
	return f
}

func validRegistration() Registration {
	return Registration{
		RepFirstName:  "Ada",
		RepLastName:   "Lovelace",
		RepRole:       "Director",
		RepPhone:      "+15550102030",
		RepEmail:      "ada@metro.test",
		HospitalName:  "Metro General",
		HospitalType:  models.HospitalPrivate,
		OfficialPhone: "+15550100000",
		City:          "Metropolis",
		Password:      "harbor-light-7",
		Documents: []models.Document{
			{Kind: models.DocumentLicense, FileName: "license.pdf", URL: "https://docs.test/license.pdf", StoragePath: "documents/license.pdf"},
		},
	}
}

func ptr[T any](v T) *T { return &v }

// seedApplication stores an application directly, bypassing Submit, as back-channel imports do.
func (f *fixture) seedApplication(t *testing.T, app models.Application) *models.Application {
	t.Helper()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now()
	}
	if err := f.apps.Create(context.Background(), &app, &models.AuditEntry{ID: "seed-" + app.ID, ApplicationID: app.ID, Action: models.AuditSubmitted, ResultingStatus: app.Status}); err != nil {
		t.Fatal(err)
	}
	return &app
}
