package models

import (
	"testing"
	"time"

	"bloodlink-backend/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func licensedApp(status ApplicationStatus) *Application {
	return &Application{
		ID:     "app-1",
		Status: status,
		Documents: []Document{
			{Kind: DocumentLicense, FileName: "license.pdf", URL: "https://files/license.pdf", StoragePath: "apps/app-1/license.pdf"},
		},
	}
}

func TestApplyReview_Table(t *testing.T) {
	tests := []struct {
		name      string
		from      ApplicationStatus
		action    ReviewAction
		wantTo    ApplicationStatus
		wantAudit AuditAction
		wantErr   error
	}{
		{"approve pending", ApplicationPending, ActionApprove, ApplicationApproved, AuditApproved, nil},
		{"reject pending", ApplicationPending, ActionReject, ApplicationRejected, AuditRejected, nil},
		{"request info keeps status", ApplicationPending, ActionRequestInfo, ApplicationPending, AuditInfoRequested, nil},
		{"approve rejected", ApplicationRejected, ActionApprove, ApplicationApproved, AuditApproved, nil},
		{"approve approved", ApplicationApproved, ActionApprove, "", "", apperror.ErrInvalidTransition},
		{"reject approved", ApplicationApproved, ActionReject, "", "", apperror.ErrInvalidTransition},
		{"request info approved", ApplicationApproved, ActionRequestInfo, "", "", apperror.ErrInvalidTransition},
		{"unknown action", ApplicationPending, ReviewAction("archive"), "", "", apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := ApplyReview(licensedApp(tt.from), tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTo, tr.To)
			assert.Equal(t, tt.wantAudit, tr.Audit)
		})
	}
}

func TestApplyReview_RequestInfoLogsInfoRequested(t *testing.T) {
	tr, err := ApplyReview(licensedApp(ApplicationPending), ActionRequestInfo)
	require.NoError(t, err)
	assert.Equal(t, ApplicationInfoRequested, tr.ResultingStatus)
	assert.Equal(t, ApplicationPending, tr.To)
}

func TestApplyReview_ApproveRequiresLicense(t *testing.T) {
	app := &Application{ID: "app-2", Status: ApplicationPending}
	_, err := ApplyReview(app, ActionApprove)
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "documents.license", appErr.Field)
}

func TestStatusChange_ApplyKeepsInvariants(t *testing.T) {
	now := time.Now().UTC()
	admin := "admin-1"

	app := licensedApp(ApplicationPending)
	tr, err := ApplyReview(app, ActionReject)
	require.NoError(t, err)
	StatusChange{Transition: tr, ActorID: &admin, Notes: "blurry license", At: now}.Apply(app)
	require.NotNil(t, app.RejectionReason)
	assert.Equal(t, "blurry license", *app.RejectionReason)
	assert.Nil(t, app.VerifiedAt)

	tr, err = ApplyReview(app, ActionApprove)
	require.NoError(t, err)
	StatusChange{Transition: tr, ActorID: &admin, At: now}.Apply(app)
	assert.Equal(t, ApplicationApproved, app.Status)
	assert.NotNil(t, app.VerifiedAt)
	assert.Nil(t, app.RejectionReason)
	assert.Nil(t, app.RejectionDate)
	assert.Equal(t, &admin, app.VerifiedBy)
}

func TestNextConnectionStatus(t *testing.T) {
	c := &DonationConnection{ID: "c1", Status: ConnectionPending}

	next, err := NextConnectionStatus(c, true)
	require.NoError(t, err)
	assert.Equal(t, ConnectionAccepted, next)

	next, err = NextConnectionStatus(c, false)
	require.NoError(t, err)
	assert.Equal(t, ConnectionRejected, next)

	for _, terminal := range []ConnectionStatus{ConnectionAccepted, ConnectionRejected} {
		c.Status = terminal
		_, err := NextConnectionStatus(c, true)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	}
}

func TestDonorSummary_WithholdsContact(t *testing.T) {
	d := Donor{ID: "d1", Phone: "+1555", Email: "d@example.com", ShowContact: false}
	assert.Nil(t, d.Summary().Contact)

	d.ShowContact = true
	require.NotNil(t, d.Summary().Contact)
	assert.Equal(t, "+1555", d.Summary().Contact.Phone)
}
