// Package repcount counts exercise repetitions from pose landmarks.
package repcount

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/illegalcall/fittrack/internal/metrics"
)

// Supported exercises.
const (
	BicepCurl    = "bicep_curl"
	LateralRaise = "lateral_raise"
)

// Stages of a repetition.
const (
	StageNone = ""
	StageDown = "down"
	StageUp   = "up"
)

// Angle thresholds in degrees.
const (
	curlExtended = 150.0
	curlFlexed   = 40.0
	raiseLowered = 40.0
	raiseRaised  = 75.0
)

// DefaultTracker names the tracker used when a client does not pick one.
const DefaultTracker = "default"

var ErrUnknownExercise = errors.New("unknown exercise")

// Point is a normalized landmark position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmarks are the left-side joints the counter needs.
type Landmarks struct {
	Shoulder Point `json:"shoulder"`
	Elbow    Point `json:"elbow"`
	Wrist    Point `json:"wrist"`
	Hip      Point `json:"hip"`
}

// State is the progress of one tracker.
type State struct {
	Reps  int    `json:"reps"`
	Stage string `json:"stage"`
}

// Angle returns the angle at b between the rays to a and c, in degrees in
// [0, 360).
func Angle(a, b, c Point) float64 {
	rad := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := rad * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Step advances s by one frame. A bicep curl counts when the elbow opens past
// 150 degrees and then closes under 40; a lateral raise counts when the arm
// drops under 40 degrees from the torso and then rises past 75.
func Step(s State, exercise string, lm Landmarks) (State, bool, error) {
	var (
		angle           float64
		reset, complete func(float64) bool
	)
	switch exercise {
	case BicepCurl:
		angle = Angle(lm.Shoulder, lm.Elbow, lm.Wrist)
		reset = func(a float64) bool { return a > curlExtended }
		complete = func(a float64) bool { return a < curlFlexed }
	case LateralRaise:
		angle = Angle(lm.Elbow, lm.Shoulder, lm.Hip)
		reset = func(a float64) bool { return a < raiseLowered }
		complete = func(a float64) bool { return a > raiseRaised }
	default:
		return s, false, fmt.Errorf("%w: %q", ErrUnknownExercise, exercise)
	}

	if reset(angle) {
		s.Stage = StageDown
	}
	if s.Stage == StageDown && complete(angle) {
		s.Stage = StageUp
		s.Reps++
		return s, true, nil
	}
	return s, false, nil
}

// Counter runs Step against persisted tracker state.
type Counter struct {
	store StateStore
}

func NewCounter(store StateStore) *Counter {
	return &Counter{store: store}
}

// Track feeds one frame to the tracker named key.
func (c *Counter) Track(ctx context.Context, key, exercise string, lm Landmarks) (State, error) {
	s, err := c.store.Load(ctx, key)
	if err != nil {
		return State{}, err
	}
	next, counted, err := Step(s, exercise, lm)
	if err != nil {
		return s, err
	}
	if next != s {
		if err := c.store.Save(ctx, key, next); err != nil {
			return s, err
		}
	}
	if counted {
		metrics.RepsCounted.WithLabelValues(exercise).Inc()
	}
	return next, nil
}

// Reset zeroes the tracker named key.
func (c *Counter) Reset(ctx context.Context, key string) error {
	return c.store.Reset(ctx, key)
}
