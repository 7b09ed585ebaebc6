package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/metrics"
	"bloodlink-backend/internal/notify"
	"bloodlink-backend/internal/repository/memory"
	"bloodlink-backend/internal/service"
	"bloodlink-backend/internal/storage"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.SetBcryptCost(bcrypt.MinCost)
	utils.InitJWT("handler-access", "handler-refresh", 15*time.Minute, 24*time.Hour)
	os.Exit(m.Run())
}

type fakeVerifier map[string]bool

func (f fakeVerifier) IsVerified(_ context.Context, phone string) (bool, error) {
	return f[phone], nil
}

type fakeOTP struct{ sent []string }

func (f *fakeOTP) Send(_ context.Context, phone string) (string, error) {
	f.sent = append(f.sent, phone)
	return "otp-1", nil
}

func (f *fakeOTP) Verify(_ context.Context, _, code string) (bool, error) {
	return code == "123456", nil
}

type testServer struct {
	router   *gin.Engine
	services Services
	docs     *storage.MemoryStore
	otp      *fakeOTP
}

func newTestServer(t *testing.T, verifier PhoneVerifier) *testServer {
	t.Helper()
	log := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	notifier := notify.NewLogNotifier(log)

	apps := memory.NewApplicationStore()
	hospitals := memory.NewHospitalStore()
	users := memory.NewUserStore()
	memberships := memory.NewUserHospitalStore()
	donors := memory.NewDonorStore()
	requests := memory.NewBloodRequestStore()
	conns := memory.NewConnectionStore()

	svc := Services{
		Applications: service.NewApplicationService(apps, notifier, m, "admin@bloodlink.test", log),
		Provisioning: service.NewProvisioningService(apps, hospitals, service.NewLocalAccountProvisioner(users, memberships), notifier, m, log),
		Matching:     service.NewMatchingService(donors, requests, 200, m),
		Connections:  service.NewConnectionService(conns, donors, requests, hospitals, notifier, m, log),
		Auth:         service.NewAuthService(users, memberships, log),
		Hospitals:    service.NewHospitalService(hospitals, memberships, log),
		Donors:       service.NewDonorService(donors, log),
		Requests:     service.NewRequestService(requests, hospitals, log),
	}
	require.NoError(t, svc.Auth.EnsureAdmin(context.Background(), "admin@bloodlink.test", "admin-pass-1"))

	docs := storage.NewMemoryStore("http://files.test")
	otp := &fakeOTP{}
	r := gin.New()
	RegisterRoutes(r, svc, RouterOptions{
		Application:     NewApplicationHandler(svc.Applications, docs, verifier, 10*time.Minute),
		OTP:             NewOTPHandler(otp),
		Metrics:         m,
		DefaultRadiusKm: 25,
	})
	return &testServer{router: r, services: svc, docs: docs, otp: otp}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Field   string          `json:"field"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code, env.Error)
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.AccessToken
}

func registration() gin.H {
	return gin.H{
		"rep_first_name": "Ada",
		"rep_last_name":  "Lovelace",
		"rep_phone":      "+1 555 010 2030",
		"rep_email":      "ada@metro.test",
		"hospital_name":  "Metro General",
		"hospital_type":  "private",
		"city":           "Metropolis",
		"password":       "harbor-light-7",
		"documents": []gin.H{
			{"kind": "license", "file_name": "license.pdf", "url": "https://docs.test/license.pdf"},
		},
	}
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestSubmitApplicationReportsMissingField(t *testing.T) {
	s := newTestServer(t, nil)
	body := registration()
	delete(body, "city")

	code, env := s.do(t, http.MethodPost, "/applications", "", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Equal(t, "city", env.Field)

	body = registration()
	body["documents"] = []gin.H{{"kind": "brochure", "url": "https://x.test/a.pdf"}}
	code, env = s.do(t, http.MethodPost, "/applications", "", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "kind", env.Field)
}

func TestSubmitApplicationRequiresVerifiedPhone(t *testing.T) {
	verified := fakeVerifier{}
	s := newTestServer(t, verified)

	code, env := s.do(t, http.MethodPost, "/applications", "", registration())
	assert.Equal(t, http.StatusPreconditionFailed, code)
	assert.Equal(t, "PRECONDITION_FAILED", env.Code)

	verified["+15550102030"] = true
	code, env = s.do(t, http.MethodPost, "/applications", "", registration())
	require.Equal(t, http.StatusCreated, code, env.Error)
	var data struct {
		ApplicationID string `json:"application_id"`
		Status        string `json:"status"`
	}
	decode(t, env.Data, &data)
	assert.NotEmpty(t, data.ApplicationID)
	assert.Equal(t, "pending", data.Status)
}

func TestOTPEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := s.do(t, http.MethodPost, "/otp/send", "", gin.H{"phone": "+15550102030"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"+15550102030"}, s.otp.sent)

	code, env := s.do(t, http.MethodPost, "/otp/verify", "", gin.H{"phone": "+15550102030", "code": "12ab56"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "code", env.Field)

	code, env = s.do(t, http.MethodPost, "/otp/verify", "", gin.H{"phone": "+15550102030", "code": "123456"})
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"verified":true}`, string(env.Data))
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := s.do(t, http.MethodGet, "/admin/applications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := s.do(t, http.MethodPost, "/auth/register", "", gin.H{"email": "sam@donor.test", "password": "blood-drive-9"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	donor := s.login(t, "sam@donor.test", "blood-drive-9")
	code, _ = s.do(t, http.MethodGet, "/admin/applications", donor, nil)
	assert.Equal(t, http.StatusForbidden, code)

	admin := s.login(t, "admin@bloodlink.test", "admin-pass-1")
	code, _ = s.do(t, http.MethodGet, "/admin/applications?status=bogus", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestApproveTwiceConflicts(t *testing.T) {
	s := newTestServer(t, nil)
	_, env := s.do(t, http.MethodPost, "/applications", "", registration())
	var created struct {
		ApplicationID string `json:"application_id"`
	}
	decode(t, env.Data, &created)
	admin := s.login(t, "admin@bloodlink.test", "admin-pass-1")

	code, env := s.do(t, http.MethodPost, "/admin/applications/"+created.ApplicationID+"/approve", admin, gin.H{"notes": "looks good"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var approved struct {
		Provisioning service.ProvisionResult `json:"provisioning"`
	}
	decode(t, env.Data, &approved)
	assert.False(t, approved.Provisioning.Partial)
	assert.NotEmpty(t, approved.Provisioning.HospitalID)

	code, env = s.do(t, http.MethodPost, "/admin/applications/"+created.ApplicationID+"/approve", admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_TRANSITION", env.Code)

	code, env = s.do(t, http.MethodPost, "/admin/applications/"+created.ApplicationID+"/reject", admin, gin.H{"notes": "too late"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodGet, "/admin/audit?applicationId="+created.ApplicationID, admin, nil)
	require.Equal(t, http.StatusOK, code)
	var audit struct {
		Count int `json:"count"`
	}
	decode(t, env.Data, &audit)
	assert.Equal(t, 2, audit.Count)
}

func TestApproveRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, nil)
	_, env := s.do(t, http.MethodPost, "/applications", "", registration())
	var created struct {
		ApplicationID string `json:"application_id"`
	}
	decode(t, env.Data, &created)
	admin := s.login(t, "admin@bloodlink.test", "admin-pass-1")

	req := httptest.NewRequest(http.MethodPost, "/admin/applications/"+created.ApplicationID+"/approve", strings.NewReader(`{"notes": `))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	code, env := s.do(t, http.MethodGet, "/admin/applications/"+created.ApplicationID, admin, nil)
	require.Equal(t, http.StatusOK, code)
	var app struct {
		Status string `json:"status"`
	}
	decode(t, env.Data, &app)
	assert.Equal(t, "pending", app.Status)
}

func TestWarningBodyNamesTheCause(t *testing.T) {
	body := warningBody(errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	assert.Equal(t, apperror.CodeUpstreamUnavailable, body["code"])
	assert.Equal(t, true, body["retryable"])
	assert.Contains(t, body["details"], "connection refused")

	body = warningBody(apperror.CredentialMissing("app-1"))
	assert.Equal(t, apperror.CodeCredentialMissing, body["code"])
	assert.NotEmpty(t, body["error"])
}

func TestMatchingQueryValidation(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(t, "admin@bloodlink.test", "admin-pass-1")

	code, env := s.do(t, http.MethodGet, "/match/donors?lng=10", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "lat", env.Field)

	code, env = s.do(t, http.MethodGet, "/match/donors?lat=95&lng=10", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "lat", env.Field)

	code, env = s.do(t, http.MethodGet, "/match/donors?lat=1&lng=1&bloodType=Z", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bloodType", env.Field)

	code, env = s.do(t, http.MethodGet, "/match/donors?lat=1&lng=1&radius=500", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "radius", env.Field)

	code, _ = s.do(t, http.MethodGet, "/match/donors?lat=1&lng=1", admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestDocumentUploadAndSignedLinks(t *testing.T) {
	s := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="license.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4 license"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var obj storage.Object
	decode(t, env.Data, &obj)
	assert.Contains(t, obj.Path, "license.pdf")
	_, ok := s.docs.Get(obj.Path)
	assert.True(t, ok)

	body := registration()
	body["documents"] = []gin.H{{"kind": "license", "file_name": "license.pdf", "url": obj.URL, "storage_path": obj.Path}}
	_, env = s.do(t, http.MethodPost, "/applications", "", body)
	var created struct {
		ApplicationID string `json:"application_id"`
	}
	decode(t, env.Data, &created)

	admin := s.login(t, "admin@bloodlink.test", "admin-pass-1")
	code, env := s.do(t, http.MethodGet, "/applications/"+created.ApplicationID+"/documents", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var docs struct {
		Documents []struct {
			URL       string     `json:"url"`
			ExpiresAt *time.Time `json:"expires_at"`
		} `json:"documents"`
	}
	decode(t, env.Data, &docs)
	require.Len(t, docs.Documents, 1)
	assert.Contains(t, docs.Documents[0].URL, "http://files.test/")
	assert.NotNil(t, docs.Documents[0].ExpiresAt)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	code, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
