package queue

import (
	"testing"
	"time"
)

func TestLocalQueueSendReceive(t *testing.T) {
	q := InitLocalQueue(4)
	if err := q.SendMessage(`{"method":"submit:scan"}`); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	msg, err := q.ReceiveMessage()
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if msg.Body != `{"method":"submit:scan"}` {
		t.Errorf("body = %q", msg.Body)
	}
	if err := q.Acknowledge(msg); err != nil {
		t.Errorf("Acknowledge: %v", err)
	}
}

func TestLocalQueueEmptyPoll(t *testing.T) {
	q := InitLocalQueue(1)
	q.pollWait = 10 * time.Millisecond
	_, err := q.ReceiveMessage()
	if err == nil || err.Error() != "no message received" {
		t.Fatalf("err = %v, want no message received", err)
	}
}

func TestLocalQueueFull(t *testing.T) {
	q := InitLocalQueue(1)
	if err := q.SendMessage("a"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := q.SendMessage("b"); err == nil {
		t.Fatal("expected queue is full")
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1", q.Len())
	}
}
