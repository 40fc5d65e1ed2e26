package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultRecentSessions caps LoadRecent when the caller passes no maximum.
const DefaultRecentSessions = 50

// SessionRecord is one logged workout. Records are append-only.
type SessionRecord struct {
	ID          string     `json:"id" db:"id"`
	ProfileID   string     `json:"-" db:"profile_id"`
	Exercise    string     `json:"exercise" db:"exercise"`
	Reps        int        `json:"reps" db:"reps"`
	Calories    float64    `json:"calories" db:"calories"`
	DurationSec float64    `json:"durationSec" db:"duration_sec"`
	StartedAt   *time.Time `json:"startedAt" db:"started_at"`
	EndedAt     *time.Time `json:"endedAt" db:"ended_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

// SessionInput is a loosely typed session description as submitted by a
// client. Numeric fields accept anything and coerce.
type SessionInput struct {
	Exercise    string `json:"exercise"`
	Reps        any    `json:"reps"`
	Calories    any    `json:"calories"`
	DurationSec any    `json:"durationSec"`
	StartedAtMs any    `json:"startedAtMs"`
	EndedAtMs   any    `json:"endedAtMs"`
}

// Record converts the input into a storable record. CreatedAt is left for
// the store to assign.
func (in SessionInput) Record(profileID string) SessionRecord {
	return SessionRecord{
		ProfileID:   profileID,
		Exercise:    in.Exercise,
		Reps:        CoerceCount(in.Reps),
		Calories:    Coerce(in.Calories),
		DurationSec: Coerce(in.DurationSec),
		StartedAt:   instant(in.StartedAtMs),
		EndedAt:     instant(in.EndedAtMs),
	}
}

// Coerce turns an arbitrary value into a number. Anything that is not
// numeric (including NaN and infinities) becomes 0.
func Coerce(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CoerceCount coerces v to a whole count. Counts outside the 32-bit range
// the store can hold are treated as non-numeric.
func CoerceCount(v any) int {
	f := math.Trunc(Coerce(v))
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// maxInstantMs keeps instants inside what time.UnixMilli can represent.
const maxInstantMs = 1 << 53

func instant(v any) *time.Time {
	ms := Coerce(v)
	if ms == 0 || math.Abs(ms) > maxInstantMs {
		return nil
	}
	t := time.UnixMilli(int64(ms)).UTC()
	return &t
}
