package worker

import (
	"context"
	"strconv"

	log "github.com/catalystscan/backend/chassis/logging"

	"github.com/catalystscan/backend/chassis/protocol"
	"github.com/catalystscan/backend/pipeline"
)

// HandleScan - runs the extraction pipeline for one dispatched filing.
func HandleScan(p *pipeline.Pipeline, workerID int) func(ctx context.Context, request *protocol.Request) *protocol.Response {
	return func(ctx context.Context, request *protocol.Request) *protocol.Response {
		response := &protocol.Response{
			ID: request.ID,
		}

		req := pipeline.Request{
			FileURL:    request.Params[protocol.ParamFileURL],
			Exchange:   request.Params[protocol.ParamExchange],
			FilingType: request.Params[protocol.ParamFilingType],
			DocID:      request.Params[protocol.ParamDocID],
			FilingDate: request.Params[protocol.ParamFilingDate],
			Ticker:     request.Params[protocol.ParamTicker],
		}
		if req.FileURL == "" {
			response.Error = map[string]string{
				"code":    "1",
				"message": "no fileURL in task payload",
				"attempt": request.Params[protocol.ParamAttempt],
			}
			return response
		}

		outcome, err := p.ProcessFile(ctx, req, nil)
		if err != nil {
			log.WithFields(log.Fields{
				"event":   "scan_failed",
				"worker":  workerID,
				"taskID":  request.ID,
				"docID":   req.DocID,
				"attempt": request.Params[protocol.ParamAttempt],
			}).Error(err)
			response.Error = map[string]string{
				"code":    "2",
				"message": err.Error(),
				"attempt": request.Params[protocol.ParamAttempt],
			}
			return response
		}

		response.Result = map[string]string{
			"result":   outcome.Status,
			"count":    strconv.Itoa(outcome.Count),
			"recordID": outcome.RecordID,
			"file":     outcome.FilePath,
			"attempt":  request.Params[protocol.ParamAttempt],
		}
		log.WithFields(log.Fields{
			"event":      "filing_processed",
			"worker":     workerID,
			"taskID":     request.ID,
			"docID":      req.DocID,
			"statements": outcome.Count,
			"attempt":    request.Params[protocol.ParamAttempt],
		}).Info("successfully scanned filing")
		return response
	}
}
