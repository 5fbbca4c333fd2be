// Package submitter drains the intake queue and persists scan requests as
// tasks.
package submitter

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/catalystscan/backend/chassis/logging"

	"github.com/catalystscan/backend/chassis/protocol"
	"github.com/catalystscan/backend/chassis/queue"
	"github.com/catalystscan/backend/chassis/storage"
)

// Config ...
type Config struct {
	Queue      queue.Client
	Repository storage.ScanRepository
	Workers    int
}

func worker(ctx context.Context, cfg *Config, workerID int, group *sync.WaitGroup) {
	cli := cfg.Queue
	repo := cfg.Repository

	for {
		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"event":  "ctx_canceled",
				"worker": workerID,
			}).Info("exit goroutine")
			group.Done()
			return
		default:
			msg, err := cli.ReceiveMessage()
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "receive_failed",
					"worker": workerID,
				}).Error(err)
				continue
			}
			request := protocol.Request{}
			err = request.FromJSON(msg.Body)
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "received_broken_message",
					"worker": workerID,
				}).Error(err)
				continue
			}
			if _, ok := request.Params[protocol.ParamDocID]; !ok {
				log.WithFields(log.Fields{
					"event":  "unsupported_message",
					"worker": workerID,
				}).Error("no docID supported")
				continue
			}
			action := storage.ActionForExchange(request.Params[protocol.ParamExchange])
			log.WithFields(log.Fields{
				"event":  "receive_message",
				"worker": workerID,
				"action": action,
				"docID":  request.Params[protocol.ParamDocID],
			}).Info(request)
			task := &storage.Task{
				Action:    action,
				Payload:   request.Params,
				CreatedDt: time.Now(),
				UpdatedDt: time.Now(),
				State:     storage.SCHEDULED,
				Result:    map[string]string{},
				Attempts:  0,
			}
			err = repo.Enqueue(task)
			if err != nil {
				if !errors.Is(err, storage.ErrDuplicateTask) {
					log.WithFields(log.Fields{
						"event":  "submit_failed",
						"worker": workerID,
						"action": action,
						"docID":  request.Params[protocol.ParamDocID],
					}).Error(err)
					continue
				}
				log.WithFields(log.Fields{
					"event":  "duplicated_task",
					"worker": workerID,
					"action": action,
					"docID":  request.Params[protocol.ParamDocID],
				}).Warn("receive duplicated task")
			} else {
				log.WithFields(log.Fields{
					"event":  "submit_to_db",
					"worker": workerID,
					"action": action,
					"docID":  request.Params[protocol.ParamDocID],
				}).Info("submit task to storage")
			}

			err = cli.Acknowledge(msg)
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "ack_message_failed",
					"worker": workerID,
					"action": action,
					"docID":  request.Params[protocol.ParamDocID],
				}).Error(err)
				continue
			}
		}
	}
}

// Run ...
func Run(ctx context.Context, cfg *Config, group *sync.WaitGroup) {
	log.WithFields(log.Fields{
		"event": "start_service",
	}).Info("starting ", cfg.Workers, " workers")
	for wrk := 1; wrk <= cfg.Workers; wrk++ {
		group.Add(1)
		go worker(ctx, cfg, wrk, group)
	}
}
