package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/voicetranslator/api/internal/model"
)

func newTestClient(jobID string, buffer int) *Client {
	return &Client{
		JobID: jobID,
		send:  make(chan []byte, buffer),
	}
}

func recvJobMessage(t *testing.T, c *Client) *model.WSJobMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg model.WSJobMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return &msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	jobSub := newTestClient("j1", 4)
	wildcardSub := newTestClient(WildcardJobID, 4)
	otherSub := newTestClient("j2", 4)
	hub.Register(jobSub)
	hub.Register(wildcardSub)
	hub.Register(otherSub)

	hub.PublishJob(&model.Job{ID: "j1", Status: model.JobStatusTranscribing})

	got := recvJobMessage(t, jobSub)
	if got.JobID != "j1" || got.Job.Status != model.JobStatusTranscribing {
		t.Errorf("job subscriber got %+v", got)
	}
	if wc := recvJobMessage(t, wildcardSub); wc.JobID != "j1" {
		t.Errorf("wildcard subscriber got %+v", wc)
	}
	select {
	case data := <-otherSub.send:
		t.Errorf("subscriber for another job received %s", data)
	default:
	}
}

func TestClientSendAfterShutdown(t *testing.T) {
	// A slow client's channel gets closed while its reader loop may still be
	// answering a ping; the guarded send must refuse instead of panicking.
	client := newTestClient("j1", 1)

	if !client.trySend([]byte("first")) {
		t.Fatal("send into free buffer must succeed")
	}
	if client.trySend([]byte("second")) {
		t.Fatal("send into full buffer must be refused")
	}

	client.shutdown()
	client.shutdown() // idempotent

	if client.trySend([]byte("after close")) {
		t.Fatal("send after shutdown must be refused")
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := newTestClient("j1", 1)
	hub.Register(slow)

	// Fill the buffer, then publish twice more; the second publish finds the
	// buffer full and drops the client.
	hub.PublishJob(&model.Job{ID: "j1", Status: model.JobStatusTranscribing})
	hub.PublishJob(&model.Job{ID: "j1", Status: model.JobStatusTranscribed})
	hub.PublishJob(&model.Job{ID: "j1", Status: model.JobStatusTranslating})

	deadline := time.After(time.Second)
	for {
		slow.mu.Lock()
		closed := slow.closed
		slow.mu.Unlock()
		if closed {
			break
		}
		select {
		case <-deadline:
			t.Fatal("slow subscriber was never dropped")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if slow.trySend([]byte("pong")) {
		t.Fatal("send to a dropped client must be refused")
	}
}
