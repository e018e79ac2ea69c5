package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRespondable(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, true},
		{StatusAssigned, true},
		{StatusInProgress, true},
		{StatusResolved, false},
		{StatusClosed, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.status.Respondable())
		})
	}
}

func TestEnumerationsAreValid(t *testing.T) {
	for _, p := range Priorities() {
		assert.True(t, p.Valid(), "priority %s", p)
		assert.NotEqual(t, string(p), p.Label())
	}
	for _, s := range Statuses() {
		assert.True(t, s.Valid(), "status %s", s)
		assert.NotEqual(t, string(s), s.Label())
	}
	assert.False(t, Priority("critical").Valid())
	assert.False(t, Status("archived").Valid())
}

func TestEscalationFilterNormalize(t *testing.T) {
	got := EscalationFilter{}.Normalize()
	assert.Equal(t, EscalationFilter{Status: "pending", Priority: "all", Limit: 100}, got)

	kept := EscalationFilter{Status: "resolved", Priority: "urgent", Limit: 10}.Normalize()
	assert.Equal(t, EscalationFilter{Status: "resolved", Priority: "urgent", Limit: 10}, kept)
}

func TestEscalationFilterValidate(t *testing.T) {
	require.NoError(t, DefaultEscalationFilter().Validate())
	require.NoError(t, EscalationFilter{Status: FilterAll, Priority: "low", Limit: 5}.Validate())
	assert.Error(t, EscalationFilter{Status: "bogus", Priority: FilterAll}.Validate())
	assert.Error(t, EscalationFilter{Status: FilterAll, Priority: "bogus"}.Validate())
	assert.Error(t, EscalationFilter{Status: FilterAll, Priority: FilterAll, Limit: -1}.Validate())
}

func TestFarmerDisplayHelpers(t *testing.T) {
	assert.Equal(t, "F", Escalation{}.FarmerInitial())
	assert.Equal(t, "Unknown", Escalation{FarmerName: "  "}.FarmerDisplayName())
	assert.Equal(t, "R", Escalation{FarmerName: "ravi"}.FarmerInitial())
	assert.Equal(t, "ര", Escalation{FarmerName: "രവി"}.FarmerInitial())
}

func TestZeroDashboardStats(t *testing.T) {
	stats := ZeroDashboardStats()
	assert.Zero(t, stats.PendingEscalations)
	assert.Zero(t, stats.ActiveCases)
	assert.Zero(t, stats.ResolvedToday)
	assert.Equal(t, "0 hours", stats.AvgResponseTime)
}

func TestAnalyticsResolutionRate(t *testing.T) {
	assert.Zero(t, Analytics{}.ResolutionRate())
	assert.InDelta(t, 75.0, Analytics{TotalEscalations: 4, Resolved: 3}.ResolutionRate(), 0.001)
}

func TestLoginResponseBearerToken(t *testing.T) {
	assert.Equal(t, "a", LoginResponse{Token: "a", AccessToken: "b"}.BearerToken())
	assert.Equal(t, "b", LoginResponse{AccessToken: "b"}.BearerToken())
}

func TestParsePriorityAndStatus(t *testing.T) {
	p, err := ParsePriority(" URGENT ")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, p)

	_, err = ParsePriority("critical")
	require.Error(t, err)

	s, err := ParseStatus("In Progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	s, err = ParseStatus("in-progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("archived")
	require.Error(t, err)
}
