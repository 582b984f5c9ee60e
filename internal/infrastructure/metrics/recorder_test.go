package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/internal/infrastructure/messaging"
	"github.com/alem-hub/offline-quest/pkg/logger"
)

var at = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestRecorder_FromBus(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	bus := messaging.NewBus(messaging.BusConfig{Logger: logger.Discard()})
	require.NoError(t, r.Attach(bus))

	events := []shared.Event{
		shared.NewSessionStartedEvent("s-1", "", at),
		shared.NewXPAddedEvent("p", 31, 31, "session", at),
		shared.NewAchievementUnlockedEvent("p", "first_session", "First Step", "👣", 50, 50, at),
		shared.NewXPAddedEvent("p", 50, 81, "achievement:first_session", at),
		shared.NewLevelUpEvent("p", 1, 2, "Explorer", "🧭", at),
		shared.NewSessionCompletedEvent("p", "s-1", 31, 81, "excellent", 0.95, at),
		shared.NewStreakBrokenEvent("p", 3, at),
	}
	for _, e := range events {
		require.NoError(t, bus.Publish(e))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(r.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SessionsCompleted.WithLabelValues("excellent")))
	assert.Equal(t, 31.0, testutil.ToFloat64(r.XPGranted.WithLabelValues("session")))
	assert.Equal(t, 50.0, testutil.ToFloat64(r.XPGranted.WithLabelValues("achievement")))
	assert.Equal(t, 81.0, testutil.ToFloat64(r.TotalXP))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CurrentLevel))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.LevelUps))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Achievements.WithLabelValues("first_session")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.StreaksBroken))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.ActiveSession))
	assert.Equal(t, 1, testutil.CollectAndCount(r.SessionMinutes))

	r.Detach()
	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("s-2", "", at)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SessionsStarted))
}

func TestRecorder_Seed(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())
	r.Seed(4, 1250)

	assert.Equal(t, 4.0, testutil.ToFloat64(r.CurrentLevel))
	assert.Equal(t, 1250.0, testutil.ToFloat64(r.TotalXP))

	// Later events take over.
	require.NoError(t, r.Handle(shared.NewXPAddedEvent("p", 10, 1260, "session", at)))
	assert.Equal(t, 1260.0, testutil.ToFloat64(r.TotalXP))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.CurrentLevel))
}

func TestNewRecorder_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewRecorder(prometheus.NewRegistry())
		NewRecorder(prometheus.NewRegistry())
	})
}
