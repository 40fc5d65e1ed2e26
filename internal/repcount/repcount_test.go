package repcount

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// armAt places the wrist so the elbow angle is deg.
func armAt(deg float64) Landmarks {
	rad := deg * math.Pi / 180
	return Landmarks{
		Shoulder: Point{X: 1, Y: 0},
		Elbow:    Point{X: 0, Y: 0},
		Wrist:    Point{X: math.Cos(rad), Y: math.Sin(rad)},
	}
}

// raiseAt places the elbow so the elbow-shoulder-hip angle is deg.
func raiseAt(deg float64) Landmarks {
	rad := deg * math.Pi / 180
	return Landmarks{
		Shoulder: Point{X: 0, Y: 0},
		Elbow:    Point{X: 1, Y: 0},
		Hip:      Point{X: math.Cos(rad), Y: math.Sin(rad)},
	}
}

func TestAngle(t *testing.T) {
	assert.InDelta(t, 90, Angle(Point{1, 0}, Point{0, 0}, Point{0, 1}), 1e-9)
	assert.InDelta(t, 270, Angle(Point{0, 1}, Point{0, 0}, Point{1, 0}), 1e-9)
	assert.InDelta(t, 180, Angle(Point{-1, 0}, Point{0, 0}, Point{1, 0}), 1e-9)
}

func TestStepBicepCurl(t *testing.T) {
	var s State
	var counted bool
	var err error

	// Flexing before ever extending does not count.
	s, counted, err = Step(s, BicepCurl, armAt(30))
	require.NoError(t, err)
	assert.False(t, counted)
	assert.Equal(t, StageNone, s.Stage)

	s, _, _ = Step(s, BicepCurl, armAt(160))
	assert.Equal(t, StageDown, s.Stage)
	s, _, _ = Step(s, BicepCurl, armAt(90))
	assert.Equal(t, 0, s.Reps)
	s, counted, _ = Step(s, BicepCurl, armAt(35))
	assert.True(t, counted)
	assert.Equal(t, State{Reps: 1, Stage: StageUp}, s)

	// Staying flexed does not count twice.
	s, counted, _ = Step(s, BicepCurl, armAt(20))
	assert.False(t, counted)
	assert.Equal(t, 1, s.Reps)
}

func TestStepLateralRaise(t *testing.T) {
	var s State
	s, _, _ = Step(s, LateralRaise, raiseAt(20))
	assert.Equal(t, StageDown, s.Stage)
	s, _, _ = Step(s, LateralRaise, raiseAt(60))
	assert.Equal(t, 0, s.Reps)
	s, counted, err := Step(s, LateralRaise, raiseAt(80))
	require.NoError(t, err)
	assert.True(t, counted)
	assert.Equal(t, State{Reps: 1, Stage: StageUp}, s)
}

func TestStepUnknownExercise(t *testing.T) {
	_, _, err := Step(State{}, "squat", Landmarks{})
	assert.ErrorIs(t, err, ErrUnknownExercise)
}

func TestCounterWithRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewCounter(NewRedisStore(client, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := c.Track(ctx, "u1:default", BicepCurl, armAt(170))
		require.NoError(t, err)
		_, err = c.Track(ctx, "u1:default", BicepCurl, armAt(10))
		require.NoError(t, err)
	}
	s, err := c.Track(ctx, "u1:default", BicepCurl, armAt(100))
	require.NoError(t, err)
	assert.Equal(t, State{Reps: 2, Stage: StageUp}, s)
	assert.Equal(t, "2", mr.HGet("reps:u1:default", "reps"))
	assert.Equal(t, time.Minute, mr.TTL("reps:u1:default"))

	require.NoError(t, c.Reset(ctx, "u1:default"))
	assert.False(t, mr.Exists("reps:u1:default"))

	s, err = NewRedisStore(client, time.Minute).Load(ctx, "u1:default")
	require.NoError(t, err)
	assert.Equal(t, State{}, s)
}

func TestCounterWithMemory(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(NewMemoryStore())

	_, err := c.Track(ctx, "k", LateralRaise, raiseAt(10))
	require.NoError(t, err)
	s, err := c.Track(ctx, "k", LateralRaise, raiseAt(90))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Reps)

	_, err = c.Track(ctx, "k", "plank", raiseAt(90))
	assert.ErrorIs(t, err, ErrUnknownExercise)

	require.NoError(t, c.Reset(ctx, "k"))
	s, err = c.Track(ctx, "k", LateralRaise, raiseAt(60))
	require.NoError(t, err)
	assert.Equal(t, State{}, s)
}
