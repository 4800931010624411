package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medoffice/scheduler-api/pkg/logger"
)

func TestNewRedisBrokerBadURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "not a url"}, logger.NewLogger(nil))
	assert.Error(t, err)
}

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	broker, err := NewRedisBroker(Config{URL: "redis://" + mr.Addr()}, logger.NewLogger(nil))
	require.NoError(t, err)
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := broker.Subscribe(ctx, "appointment.status_changed")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	payload := map[string]string{"id": "a1", "from": "confirmed", "to": "cancelled"}
	require.NoError(t, broker.Publish(ctx, "appointment.status_changed", payload))

	select {
	case raw := <-msgs:
		var got map[string]string
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}
