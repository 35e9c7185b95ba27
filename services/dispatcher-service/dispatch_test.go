package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resolveit/services/case-service/models"
)

func body(t *testing.T, e models.CaseEvent) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

func TestDecideRoutesByCategory(t *testing.T) {
	tests := []struct {
		category string
		desk     string
	}{
		{"family", "family-mediation"},
		{"business", "commercial-mediation"},
		{"criminal", "criminal-liaison"},
		{"", fallbackDesk},
	}
	for _, tc := range tests {
		d, err := decide(body(t, models.CaseEvent{Type: models.EventCaseRegistered, CaseID: "c1", Category: tc.category}))
		require.NoError(t, err)
		assert.Equal(t, tc.desk, d.Desk, tc.category)
		assert.Empty(t, d.Notify)
	}
}

func TestDecideNotifiesOwnerOnUpdate(t *testing.T) {
	d, err := decide(body(t, models.CaseEvent{Type: models.EventCaseUpdated, CaseID: "c1", OwnerID: "u1", Field: "caseStatus", Value: "resolved"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", d.Notify)
	assert.Empty(t, d.Desk)
	assert.Equal(t, "resolved", d.Event.Value)
}

func TestDecideRejectsBadEvents(t *testing.T) {
	_, err := decide([]byte("{not json"))
	assert.Error(t, err)

	_, err = decide(body(t, models.CaseEvent{Type: models.EventCaseUpdated}))
	assert.Error(t, err)

	_, err = decide(body(t, models.CaseEvent{Type: "case.deleted", CaseID: "c1"}))
	assert.Error(t, err)
}
