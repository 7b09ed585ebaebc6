package service

import (
	"context"
	"testing"

	"bloodlink-backend/internal/models"
	"bloodlink-backend/pkg/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplicationToAcceptedDonation walks a hospital from registration to its
// first accepted donor offer.
func TestApplicationToAcceptedDonation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appID, err := f.applications.Submit(ctx, validRegistration())
	require.NoError(t, err)
	_, err = f.applications.SetStatus(ctx, appID, models.ActionApprove, "admin1", "looks good")
	require.NoError(t, err)

	res, err := f.provisioning.ProvisionFromApproved(ctx, appID, "admin1")
	require.NoError(t, err)
	require.False(t, res.Partial)
	require.NotNil(t, res.UserID)
	staffZ := *res.UserID

	hospital, err := f.hospitals.GetByID(ctx, res.HospitalID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, hospital.VerificationStatus)

	_, err = f.hospitalSvc.UpdateLocation(ctx, hospital.ID, geo.Point{Latitude: 40.71, Longitude: -74.0}, staffZ, models.RoleHospitalStaff)
	require.NoError(t, err)
	requestY, err := f.requestSvc.Create(ctx, hospital.ID, staffZ, NewBloodRequest{BloodType: "O-", UnitsNeeded: 3, Urgency: models.UrgencyEmergency})
	require.NoError(t, err)

	donorX, err := f.donorSvc.UpsertProfile(ctx, "donor-user", DonorProfile{
		FirstName: "Sam", BloodType: "O-", City: "Metropolis",
		Location:    &geo.Point{Latitude: 40.73, Longitude: -73.99},
		IsAvailable: true, VisibilityPublic: true,
	})
	require.NoError(t, err)

	nearby, err := f.matching.NearbyRequests(ctx, donorX.GeoPoint(), 10, RequestFilter{BloodType: "O-"})
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, requestY.ID, nearby[0].Request.ID)

	conn, created, err := f.connections.Propose(ctx, donorX.ID, requestY.ID, hospital.ID)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, models.ConnectionPending, conn.Status)

	ok, err := f.hospitalSvc.CanAccess(ctx, staffZ, models.RoleHospitalStaff, conn.HospitalID)
	require.NoError(t, err)
	require.True(t, ok)

	resolved, err := f.connections.Resolve(ctx, conn.ID, true, staffZ, "verified eligibility")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionAccepted, resolved.Status)
	require.NotNil(t, resolved.VerifiedByStaffID)
	assert.Equal(t, staffZ, *resolved.VerifiedByStaffID)

	stored, err := f.connections.Get(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionAccepted, stored.Status)
	assert.Equal(t, "verified eligibility", stored.HospitalNotes)
}
