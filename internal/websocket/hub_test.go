package websocket

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/council-rankings/internal/domain"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func TestHubSubscriptions(t *testing.T) {
	h := testHub(t)
	client := &Client{id: "c1", hub: h, send: make(chan []byte, 16)}

	h.Register(client)
	h.Subscribe(client, "Sports")

	assert.Eventually(t, func() bool {
		return h.GetTotalConnections() == 1 && h.GetSubscriberCount("Sports") == 1
	}, time.Second, 10*time.Millisecond)

	h.Unsubscribe(client, "Sports")
	assert.Eventually(t, func() bool {
		return h.GetSubscriberCount("Sports") == 0
	}, time.Second, 10*time.Millisecond)

	h.Unregister(client)
	assert.Eventually(t, func() bool {
		return h.GetTotalConnections() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestBroadcastRankingUpdateReachesSubscribers(t *testing.T) {
	h := testHub(t)
	subscribed := &Client{id: "sub", hub: h, send: make(chan []byte, 16)}
	other := &Client{id: "other", hub: h, send: make(chan []byte, 16)}

	h.Register(subscribed)
	h.Register(other)
	h.Subscribe(subscribed, "Sports")
	assert.Eventually(t, func() bool {
		return h.GetSubscriberCount("Sports") == 1
	}, time.Second, 10*time.Millisecond)

	h.BroadcastRankingUpdate("Sports", []domain.StudentRanking{{Email: "a@x", Rank: 1}})

	select {
	case msg := <-subscribed.send:
		assert.Contains(t, string(msg), MessageTypeRankingUpdate)
		assert.Contains(t, string(msg), "a@x")
	case <-time.After(time.Second):
		t.Fatal("subscribed client did not receive broadcast")
	}

	select {
	case <-other.send:
		t.Fatal("unsubscribed client received category broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}
