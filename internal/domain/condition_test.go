package domain

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeState is a minimal GameState for condition evaluation.
type fakeState struct {
	level     int
	stages    int
	balances  map[string]int64
	purchased map[string]bool
	lastShown map[string]time.Time
	segments  map[string]string
}

func (f *fakeState) GetPlayerLevel() int     { return f.level }
func (f *fakeState) GetCompletedStages() int { return f.stages }
func (f *fakeState) GetRegion() string       { return f.segments["region"] }
func (f *fakeState) GetPlayerType() string   { return f.segments["playerType"] }

func (f *fakeState) GetCurrency(code string) int64 { return f.balances[code] }

func (f *fakeState) HasPurchased(offerID string) bool { return f.purchased[offerID] }

func (f *fakeState) GetLastShown(offerID string) time.Time { return f.lastShown[offerID] }

func (f *fakeState) GetUserSegmentation() map[string]string { return f.segments }

func TestCompileCondition(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	state := &fakeState{
		level:     7,
		stages:    3,
		balances:  map[string]int64{"GEMS": 120},
		purchased: map[string]bool{"old_pack": true},
		lastShown: map[string]time.Time{
			"cooled": now.Add(-2 * time.Hour),
			"recent": now.Add(-10 * time.Second),
		},
	}

	tests := []struct {
		name    string
		spec    ConditionSpec
		ownerID string
		want    bool
	}{
		{"level met", ConditionSpec{Type: "LevelAtLeast", Value: "5"}, "o", true},
		{"level not met", ConditionSpec{Type: "LevelAtLeast", Value: "8"}, "o", false},
		{"level exact", ConditionSpec{Type: "LevelAtLeast", Value: "7"}, "o", true},
		{"stage met", ConditionSpec{Type: "StageCompleted", Value: "3"}, "o", true},
		{"stage not met", ConditionSpec{Type: "StageCompleted", Value: "4"}, "o", false},
		{"has currency", ConditionSpec{Type: "HasCurrency", Value: "GEMS:100"}, "o", true},
		{"has currency exact", ConditionSpec{Type: "HasCurrency", Value: "GEMS:120"}, "o", true},
		{"insufficient currency", ConditionSpec{Type: "HasCurrency", Value: "GEMS:121"}, "o", false},
		{"unknown currency", ConditionSpec{Type: "HasCurrency", Value: "GOLD:1"}, "o", false},
		{"cooldown elapsed", ConditionSpec{Type: "CooldownSeconds", Value: "3600"}, "cooled", true},
		{"cooldown active", ConditionSpec{Type: "CooldownSeconds", Value: "3600"}, "recent", false},
		{"cooldown never shown", ConditionSpec{Type: "CooldownSeconds", Value: "3600"}, "fresh", true},
		{"not purchased", ConditionSpec{Type: "HasNotPurchased", Value: "new_pack"}, "o", true},
		{"already purchased", ConditionSpec{Type: "HasNotPurchased", Value: "old_pack"}, "o", false},
		{"unknown type fails closed", ConditionSpec{Type: "MoonPhase", Value: "full"}, "o", false},
		{"malformed level fails closed", ConditionSpec{Type: "LevelAtLeast", Value: "five"}, "o", false},
		{"malformed currency fails closed", ConditionSpec{Type: "HasCurrency", Value: "GEMS"}, "o", false},
		{"malformed cooldown fails closed", ConditionSpec{Type: "CooldownSeconds", Value: "soon"}, "o", false},
		{"missing purchase id fails closed", ConditionSpec{Type: "HasNotPurchased", Value: ""}, "o", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := CompileCondition(tt.spec, tt.ownerID, slog.Default(), clock)
			assert.Equal(t, tt.want, cond.Evaluate(state))
		})
	}
}

func TestMatchesSegments(t *testing.T) {
	tests := []struct {
		name     string
		required map[string]string
		user     map[string]string
		want     bool
	}{
		{"empty requirement matches anything", nil, nil, true},
		{"empty requirement matches populated user", map[string]string{}, map[string]string{"region": "EU"}, true},
		{"requirement against empty user never matches", map[string]string{"region": "EU"}, nil, false},
		{"exact match", map[string]string{"region": "EU"}, map[string]string{"region": "EU"}, true},
		{"value mismatch", map[string]string{"region": "EU"}, map[string]string{"region": "US"}, false},
		{"missing key", map[string]string{"playerType": "whale"}, map[string]string{"region": "EU"}, false},
		{"subset of user segments", map[string]string{"region": "EU"}, map[string]string{"region": "EU", "playerType": "casual"}, true},
		{"all keys must match", map[string]string{"region": "EU", "playerType": "whale"}, map[string]string{"region": "EU", "playerType": "casual"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesSegments(tt.required, tt.user))
		})
	}
}

func TestOfferEligible(t *testing.T) {
	state := &fakeState{level: 10}

	pass := CompileCondition(ConditionSpec{Type: "LevelAtLeast", Value: "5"}, "o", slog.Default(), nil)
	fail := CompileCondition(ConditionSpec{Type: "LevelAtLeast", Value: "20"}, "o", slog.Default(), nil)

	noConditions := &Offer{ID: "a"}
	assert.True(t, noConditions.Eligible(state))

	allPass := &Offer{ID: "b", Conditions: []Condition{pass, pass}}
	assert.True(t, allPass.Eligible(state))

	oneFails := &Offer{ID: "c", Conditions: []Condition{pass, fail}}
	assert.False(t, oneFails.Eligible(state))
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateCurrency("GEMS"))
	assert.NoError(t, ValidateCurrency("GOLD_BARS"))
	assert.Error(t, ValidateCurrency("gems"))
	assert.Error(t, ValidateCurrency(""))
	assert.Error(t, ValidateCurrency("1UP"))

	assert.NoError(t, ValidateNonNegativeAmount(0))
	assert.NoError(t, ValidateNonNegativeAmount(10))
	assert.Error(t, ValidateNonNegativeAmount(-1))

	assert.NoError(t, ValidateOfferID("starter_pack"))
	assert.Error(t, ValidateOfferID(""))
}
