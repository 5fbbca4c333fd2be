package queue

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"
)

// LocalQueue is an in-process Client used by the single-binary scan runner.
// ReceiveMessage blocks for the poll window and reports the same
// "no message received" error as an empty SQS poll, so the service loops
// behave identically in both modes.
type LocalQueue struct {
	ch       chan string
	pollWait time.Duration
	seq      uint64
}

// InitLocalQueue ...
func InitLocalQueue(buffer int) *LocalQueue {
	if buffer <= 0 {
		buffer = 1024
	}
	return &LocalQueue{
		ch:       make(chan string, buffer),
		pollWait: 5 * time.Second,
	}
}

// SendMessage ...
func (q *LocalQueue) SendMessage(message string) error {
	select {
	case q.ch <- message:
		return nil
	default:
		return errors.New("queue is full")
	}
}

// ReceiveMessage ...
func (q *LocalQueue) ReceiveMessage() (*RecvMessage, error) {
	select {
	case body := <-q.ch:
		id := strconv.FormatUint(atomic.AddUint64(&q.seq, 1), 10)
		return &RecvMessage{ID: id, Body: body, Handler: id}, nil
	case <-time.After(q.pollWait):
		return nil, errors.New("no message received")
	}
}

// Acknowledge is a no-op: channel reads are destructive already.
func (q *LocalQueue) Acknowledge(*RecvMessage) error {
	return nil
}

// Len reports the number of buffered messages.
func (q *LocalQueue) Len() int {
	return len(q.ch)
}
