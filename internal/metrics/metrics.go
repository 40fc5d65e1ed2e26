// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fittrack",
		Name:      "auth_attempts_total",
		Help:      "Sign-up, sign-in and sign-out attempts by outcome.",
	}, []string{"operation", "outcome"})

	SessionsLogged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fittrack",
		Name:      "workout_sessions_logged_total",
		Help:      "Workout session records appended.",
	})

	AdminActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fittrack",
		Name:      "admin_actions_total",
		Help:      "Admin console mutations by action and outcome.",
	}, []string{"action", "outcome"})

	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fittrack",
		Name:      "events_published_total",
		Help:      "Events handed to Kafka.",
	})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fittrack",
		Name:      "events_dropped_total",
		Help:      "Events lost before reaching Kafka.",
	}, []string{"reason"})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fittrack",
		Name:      "events_consumed_total",
		Help:      "Events processed by the audit worker by outcome.",
	}, []string{"outcome"})

	RepsCounted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fittrack",
		Name:      "reps_counted_total",
		Help:      "Repetitions detected by the rep counter per exercise.",
	}, []string{"exercise"})
)

// Outcome turns an error into the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
