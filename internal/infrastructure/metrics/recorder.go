// Package metrics exposes engine activity as Prometheus metrics by listening
// to the event bus.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
)

const namespace = "offline_quest"

// Recorder holds the engine's collectors.
type Recorder struct {
	SessionsStarted   prometheus.Counter
	SessionsCompleted *prometheus.CounterVec // quality
	SessionMinutes    prometheus.Histogram
	SessionFocus      prometheus.Histogram
	XPGranted         *prometheus.CounterVec // source: session, achievement
	LevelUps          prometheus.Counter
	CurrentLevel      prometheus.Gauge
	TotalXP           prometheus.Gauge
	Achievements      *prometheus.CounterVec // achievement_id
	StreaksBroken     prometheus.Counter
	StateRecoveries   prometheus.Counter
	ActiveSession     prometheus.Gauge

	sub shared.Subscription
}

// NewRecorder registers the collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)

	return &Recorder{
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Sessions started",
		}),
		SessionsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "completed_total",
			Help:      "Sessions completed by quality",
		}, []string{"quality"}),
		SessionMinutes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "minutes",
			Help:      "Whole minutes per completed session",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 90, 120, 240},
		}),
		SessionFocus: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "focus_ratio",
			Help:      "Focus ratio per completed session",
			Buckets:   []float64{0.5, 0.7, 0.8, 0.9, 0.95, 1},
		}),
		XPGranted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "xp_granted_total",
			Help:      "XP granted by source",
		}, []string{"source"}),
		LevelUps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "level_ups_total",
			Help:      "Level-ups",
		}),
		CurrentLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "level",
			Help:      "Current level",
		}),
		TotalXP: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "xp",
			Help:      "Total XP",
		}),
		Achievements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked",
		}, []string{"achievement_id"}),
		StreaksBroken: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "streaks_broken_total",
			Help:      "Streak resets",
		}),
		StateRecoveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "state_recoveries_total",
			Help:      "Corrupt profiles replaced with a fresh one",
		}),
		ActiveSession: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "1 while a session is running",
		}),
	}
}

// Attach subscribes the recorder to every event on bus.
func (r *Recorder) Attach(bus shared.EventSubscriber) error {
	sub, err := bus.Subscribe(r.Handle)
	if err != nil {
		return fmt.Errorf("subscribe metrics recorder: %w", err)
	}
	r.sub = sub
	return nil
}

// Detach stops recording.
func (r *Recorder) Detach() {
	if r.sub != nil {
		r.sub.Unsubscribe()
	}
}

// Seed sets the profile gauges from a loaded profile, before any event arrives.
func (r *Recorder) Seed(level, totalXP int) {
	r.CurrentLevel.Set(float64(level))
	r.TotalXP.Set(float64(totalXP))
}

// Handle updates collectors from one event.
func (r *Recorder) Handle(event shared.Event) error {
	switch e := event.(type) {
	case shared.SessionStartedEvent:
		r.SessionsStarted.Inc()
		r.ActiveSession.Set(1)
	case shared.SessionCompletedEvent:
		r.SessionsCompleted.WithLabelValues(e.Quality).Inc()
		r.SessionMinutes.Observe(float64(e.Minutes))
		r.SessionFocus.Observe(e.FocusRatio)
		r.ActiveSession.Set(0)
	case shared.XPAddedEvent:
		r.XPGranted.WithLabelValues(sourceLabel(e.Source)).Add(float64(e.Amount))
		r.TotalXP.Set(float64(e.NewTotal))
	case shared.LevelUpEvent:
		r.LevelUps.Inc()
		r.CurrentLevel.Set(float64(e.NewLevel))
	case shared.AchievementUnlockedEvent:
		r.Achievements.WithLabelValues(e.AchievementID).Inc()
	case shared.StreakBrokenEvent:
		r.StreaksBroken.Inc()
	case shared.StateRecoveredEvent:
		r.StateRecoveries.Inc()
	}
	return nil
}

// sourceLabel keeps label cardinality bounded: "achievement:<id>" becomes "achievement".
func sourceLabel(source string) string {
	if strings.HasPrefix(source, "achievement") {
		return "achievement"
	}
	return source
}
