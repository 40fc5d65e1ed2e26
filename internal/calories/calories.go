// Package calories estimates the energy spent on a set of repetitions.
package calories

import (
	"math"
	"strconv"
	"strings"

	"github.com/illegalcall/fittrack/internal/repcount"
)

// Defaults used when the caller leaves a body metric out.
const (
	DefaultAge    = 25
	DefaultWeight = 70
	DefaultGender = 1
)

// Input is a loosely typed estimate request. Age, weight and gender accept
// numbers or numeric strings; anything else falls back to the defaults.
type Input struct {
	Exercise string `json:"exercise"`
	Reps     int    `json:"reps"`
	Age      any    `json:"age"`
	Weight   any    `json:"weight"`
	Gender   any    `json:"gender"`
}

// Estimate returns kcal for in, rounded to two decimals. No repetitions means
// no calories, and the result is never negative.
func Estimate(in Input) float64 {
	if in.Reps <= 0 {
		return 0
	}
	age := intOr(in.Age, DefaultAge)
	weight := intOr(in.Weight, DefaultWeight)
	gender := intOr(in.Gender, DefaultGender)

	factor := 1.05
	if in.Exercise == repcount.LateralRaise {
		factor = 0.9
	}
	kcal := float64(in.Reps)*0.3*factor + float64(weight)*0.08 - float64(age)*0.05 + float64(gender)*2
	if kcal < 0 {
		return 0
	}
	return math.Round(kcal*100) / 100
}

func intOr(v any, def int) int {
	switch n := v.(type) {
	case nil:
		return def
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return def
		}
		return int(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return def
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return def
		}
		return i
	}
	return def
}
