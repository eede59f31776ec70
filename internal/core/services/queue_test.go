package services

import (
	"errors"
	"testing"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
)

func track(token string) domain.QueueItem {
	return domain.QueueItem{
		Kind: domain.ItemTrack,
		Track: domain.PendingTrack{
			TrackToken:    token,
			Title:         "Song " + token,
			Artist:        "Artist",
			MediaURL:      "http://media/" + token + ".mp3",
			AllowFeedback: true,
		},
	}
}

// TestQueue_Order verifies items come back out in exactly delivery order.
func TestQueue_Order(t *testing.T) {
	q := NewQueue()
	q.Replace([]domain.QueueItem{track("a"), track("b"), track("c")})

	want := []string{"a", "b", "c"}
	for _, token := range want {
		item, err := q.Dequeue()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.Track.TrackToken != token {
			t.Fatalf("got %s, want %s", item.Track.TrackToken, token)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained, %d items left", q.Len())
	}
}

// TestQueue_ReplaceDiscardsPending verifies a fetch replaces, never merges.
func TestQueue_ReplaceDiscardsPending(t *testing.T) {
	q := NewQueue()
	q.Replace([]domain.QueueItem{track("old1"), track("old2")})
	q.Replace([]domain.QueueItem{track("new1")})

	if q.Len() != 1 {
		t.Fatalf("got %d items, want 1", q.Len())
	}
	item, err := q.Dequeue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Track.TrackToken != "new1" {
		t.Fatalf("got %s, want new1", item.Track.TrackToken)
	}
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q := NewQueue()
	if _, err := q.Dequeue(); !errors.Is(err, domain.ErrQueueEmpty) {
		t.Fatalf("got %v, want ErrQueueEmpty", err)
	}

	q.Replace([]domain.QueueItem{track("a")})
	q.Clear()
	if _, err := q.Dequeue(); !errors.Is(err, domain.ErrQueueEmpty) {
		t.Fatalf("got %v after Clear, want ErrQueueEmpty", err)
	}
}
