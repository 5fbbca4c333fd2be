// Package worker consumes dispatched scan tasks, runs the extraction
// pipeline and reports results to the resulter queue.
package worker

import (
	"context"
	"sync"

	log "github.com/catalystscan/backend/chassis/logging"

	"github.com/catalystscan/backend/chassis/protocol"
	"github.com/catalystscan/backend/chassis/queue"
	"github.com/catalystscan/backend/chassis/storage"
	"github.com/catalystscan/backend/pipeline"
)

// Config ...
type Config struct {
	QueueSrc queue.Client
	QueueDst queue.Client
	Pipeline *pipeline.Pipeline
	Workers  int
}

func worker(ctx context.Context, cfg *Config, workerID int, group *sync.WaitGroup) {
	cliSrc := cfg.QueueSrc
	cliDst := cfg.QueueDst
	var handlers = map[storage.Action]func(context.Context, *protocol.Request) *protocol.Response{
		storage.SCAN_ASX: HandleScan(cfg.Pipeline, workerID),
		storage.SCAN_SEC: HandleScan(cfg.Pipeline, workerID),
	}
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
			msg, err := cliSrc.ReceiveMessage()
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "receive_failed",
					"worker": workerID,
				}).Error(err)
				continue
			}
			request := &protocol.Request{}
			err = request.FromJSON(msg.Body)
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "receive_broken_message",
					"worker": workerID,
				}).Error(err)
				continue
			}
			action := storage.Action(request.Method)
			log.WithFields(log.Fields{
				"event":  "receive_message",
				"worker": workerID,
				"action": action,
				"taskID": request.ID,
				"docID":  request.Params[protocol.ParamDocID],
			}).Info(request)
			handler, ok := handlers[action]
			if !ok {
				log.WithFields(log.Fields{
					"event":  "handler_not_found",
					"worker": workerID,
					"taskID": request.ID,
				}).Error(action)
				continue
			}
			response := handler(ctx, request)

			jsonMsg, err := response.JSON()
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "response_serialize_failed",
					"worker": workerID,
					"taskID": request.ID,
				}).Error(err)
				continue
			}
			err = cliDst.SendMessage(jsonMsg)
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "result_send_failed",
					"worker": workerID,
					"taskID": request.ID,
				}).Error(err)
				continue
			}
			err = cliSrc.Acknowledge(msg)
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "ack_message_failed",
					"worker": workerID,
					"taskID": request.ID,
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
