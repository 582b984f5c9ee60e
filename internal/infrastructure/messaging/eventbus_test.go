package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/pkg/logger"
)

var testTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestBus() *Bus {
	return NewBus(BusConfig{Logger: logger.Discard()})
}

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	bus := newTestBus()
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		_, err := bus.Subscribe(func(shared.Event) error {
			order = append(order, name)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("s-1", "", testTime)))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBus_TypeFilter(t *testing.T) {
	bus := newTestBus()
	var got []shared.EventType

	_, err := bus.Subscribe(func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	}, shared.EventLevelUp)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(shared.NewXPAddedEvent("p", 10, 10, "session", testTime)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("p", 1, 2, "Explorer", "🧭", testTime)))

	assert.Equal(t, []shared.EventType{shared.EventLevelUp}, got)
}

func TestBus_FailingAndPanickingHandlersDoNotStopOthers(t *testing.T) {
	bus := newTestBus()
	calls := 0

	_, _ = bus.Subscribe(func(shared.Event) error { return errors.New("boom") })
	_, _ = bus.Subscribe(func(shared.Event) error { panic("kaboom") })
	_, _ = bus.Subscribe(func(shared.Event) error { calls++; return nil })

	assert.NotPanics(t, func() {
		require.NoError(t, bus.Publish(shared.NewSessionTickEvent("s-1", time.Second, testTime)))
	})
	assert.Equal(t, 1, calls)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus()
	calls := 0

	sub, err := bus.Subscribe(func(shared.Event) error { calls++; return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, bus.HandlerCount())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, bus.HandlerCount())

	require.NoError(t, bus.Publish(shared.NewSessionTickEvent("s-1", time.Second, testTime)))
	assert.Equal(t, 0, calls)
}

func TestBus_Closed(t *testing.T) {
	bus := newTestBus()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(shared.NewSessionTickEvent("s-1", 0, testTime)), ErrEventBusClosed)
	_, err := bus.Subscribe(func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestBus_RejectsNil(t *testing.T) {
	bus := newTestBus()
	assert.Error(t, bus.Publish(nil))
	_, err := bus.Subscribe(nil)
	assert.Error(t, err)
}

func TestChannelSubscriber(t *testing.T) {
	bus := newTestBus()
	cs, err := NewChannelSubscriber(bus, 2, shared.EventSessionTick)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(shared.NewSessionTickEvent("s-1", time.Duration(i)*time.Second, testTime)))
	}
	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("s-1", "", testTime)))

	assert.Equal(t, int64(1), cs.Dropped())

	first := <-cs.Events()
	assert.Equal(t, shared.EventSessionTick, first.EventType())
	assert.Equal(t, int64(0), first.Payload()["elapsed_ms"])

	cs.Close()
	cs.Close()

	// Drain the remaining buffered event, then the channel must be closed.
	<-cs.Events()
	_, open := <-cs.Events()
	assert.False(t, open)
	assert.Equal(t, 0, bus.HandlerCount())
}

func TestRedisForwarder_PublishesEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps := client.Subscribe(ctx, "test:events")
	defer ps.Close()
	_, err := ps.Receive(ctx)
	require.NoError(t, err)

	bus := newTestBus()
	fwd, err := NewRedisForwarder(bus, RedisForwarderConfig{
		Client:     client,
		Channel:    "test:events",
		InstanceID: "instance-test",
		Types:      []shared.EventType{shared.EventAchievementUnlocked},
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	defer fwd.Close()

	require.NoError(t, bus.Publish(shared.NewXPAddedEvent("p-1", 5, 5, "session", testTime)))
	require.NoError(t, bus.Publish(shared.NewAchievementUnlockedEvent("p-1", "first_session", "First Step", "👣", 50, 50, testTime)))

	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)

	event, err := DecodeEnvelope([]byte(msg.Payload))
	require.NoError(t, err)
	assert.Equal(t, shared.EventAchievementUnlocked, event.EventType())
	assert.Equal(t, "p-1", event.AggregateID())
	assert.True(t, testTime.Equal(event.OccurredAt()))
	assert.Equal(t, "first_session", event.Payload()["achievement_id"])
}

func TestRedisForwarder_UnavailableRedisDoesNotFailPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	bus := newTestBus()
	_, err := NewRedisForwarder(bus, RedisForwarderConfig{
		Client:         client,
		PublishTimeout: 200 * time.Millisecond,
		Logger:         logger.Discard(),
	})
	require.NoError(t, err)

	assert.NoError(t, bus.Publish(shared.NewSessionTickEvent("s-1", 0, testTime)))
}

func TestNewRedisForwarder_GeneratesInstanceID(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	bus := newTestBus()
	a, err := NewRedisForwarder(bus, RedisForwarderConfig{Client: client, Logger: logger.Discard()})
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedisForwarder(bus, RedisForwarderConfig{Client: client, Logger: logger.Discard()})
	require.NoError(t, err)
	defer b.Close()

	_, err = uuid.Parse(a.instanceID)
	assert.NoError(t, err)
	assert.NotEqual(t, a.instanceID, b.instanceID)
}

func TestNewRedisForwarder_RequiresClient(t *testing.T) {
	_, err := NewRedisForwarder(newTestBus(), RedisForwarderConfig{})
	assert.Error(t, err)
}
