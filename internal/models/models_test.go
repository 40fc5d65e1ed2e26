package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"float", 12.5, 12.5},
		{"int", 7, 7},
		{"numeric string", " 42 ", 42},
		{"empty string", "", 0},
		{"word", "lots", 0},
		{"true", true, 1},
		{"false", false, 0},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
		{"object", map[string]any{"a": 1}, 0},
		{"json number", json.Number("3"), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.in))
		})
	}
}

func TestSessionInputRecord(t *testing.T) {
	var in SessionInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"exercise": "bicep_curl",
		"reps": "abc",
		"calories": 3.5,
		"durationSec": "60",
		"startedAtMs": 1700000000000
	}`), &in))

	rec := in.Record("user-1")
	assert.Equal(t, "user-1", rec.ProfileID)
	assert.Equal(t, "bicep_curl", rec.Exercise)
	assert.Equal(t, 0, rec.Reps)
	assert.Equal(t, 3.5, rec.Calories)
	assert.Equal(t, 60.0, rec.DurationSec)
	require.NotNil(t, rec.StartedAt)
	assert.Equal(t, int64(1700000000000), rec.StartedAt.UnixMilli())
	assert.Nil(t, rec.EndedAt)
}

func TestCoerceCount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"truncates", "12.9", 12},
		{"negative", -3.7, -3},
		{"int32 max", float64(math.MaxInt32), math.MaxInt32},
		{"above int32", "3e9", 0},
		{"huge", "1e30", 0},
		{"huge negative", -1e30, 0},
		{"word", "ten", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceCount(tt.in))
		})
	}

	rec := SessionInput{Reps: "1e30", EndedAtMs: 1e30}.Record("user-1")
	assert.Equal(t, 0, rec.Reps)
	assert.Nil(t, rec.EndedAt)
}

func TestFieldPresence(t *testing.T) {
	var d ProfileDelta
	require.NoError(t, json.Unmarshal([]byte(`{"displayName":"Sam","age":null}`), &d))

	assert.True(t, d.DisplayName.Set)
	assert.Equal(t, "Sam", d.DisplayName.Value)
	assert.True(t, d.Age.Set)
	assert.Nil(t, d.Age.Value)
	assert.False(t, d.Weight.Set)
	assert.False(t, d.IsAdmin.Set)
	assert.False(t, d.Empty())
	assert.True(t, ProfileDelta{}.Empty())
}

func TestProfileDeltaApplyKeepsAbsentFields(t *testing.T) {
	weight := 80.0
	p := Profile{ID: "u1", DisplayName: "Old", Weight: &weight, Gender: GenderFemale, IsAdmin: true}

	got := ProfileDelta{DisplayName: Set("New")}.Apply(p)

	assert.Equal(t, "New", got.DisplayName)
	assert.Equal(t, &weight, got.Weight)
	assert.Equal(t, GenderFemale, got.Gender)
	assert.True(t, got.IsAdmin)
}

func TestDefaultProfileDelta(t *testing.T) {
	p := DefaultProfileDelta("runner", "").Apply(Profile{ID: "u1"})

	assert.Equal(t, "runner", p.DisplayName)
	assert.Equal(t, DefaultAvatarURL, p.AvatarURL)
	assert.Equal(t, GenderMale, p.Gender)
	assert.False(t, p.IsAdmin)
	assert.Nil(t, p.Age)
}

func TestSelfProfileUpdateDropsAdminFlag(t *testing.T) {
	var u SelfProfileUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"displayName":"x","isAdmin":true}`), &u))

	d := u.Delta()
	assert.True(t, d.DisplayName.Set)
	assert.False(t, d.IsAdmin.Set)
}
