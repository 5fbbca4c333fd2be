// Package scheduler claims scheduled tasks and dispatches them to the scan
// queue.
package scheduler

import (
	"context"
	"errors"
	"strconv"
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
			task, err := repo.SelectTask()
			if err != nil {
				if errors.Is(err, storage.ErrNoTask) {
					log.WithFields(log.Fields{
						"event":  "select_task_failed",
						"worker": workerID,
					}).Info(err)
					time.Sleep(time.Second * 5)
				} else {
					log.WithFields(log.Fields{
						"event":  "select_task_failed",
						"worker": workerID,
					}).Error(err)
				}
				continue
			}
			log.WithFields(log.Fields{
				"event":  "task_acquire",
				"worker": workerID,
				"taskID": task.ID,
				"action": task.Action,
				"docID":  task.Payload[protocol.ParamDocID],
			}).Info("acquire task")
			message := protocol.Request{
				Method: string(task.Action),
				Params: task.Payload,
				ID:     strconv.Itoa(task.ID),
			}
			jsonMsg, err := message.JSON()
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "request_serialize_failed",
					"worker": workerID,
				}).Error(err)
				continue
			}
			err = cli.SendMessage(jsonMsg)
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "request_send_failed",
					"worker": workerID,
				}).Error(err)
				continue
			}
			log.WithFields(log.Fields{
				"event":  "send_task",
				"worker": workerID,
				"taskID": task.ID,
				"action": task.Action,
				"docID":  task.Payload[protocol.ParamDocID],
			}).Info("send task to workers")
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
