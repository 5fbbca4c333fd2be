// Command scan runs the whole pipeline in one process: it discovers filings
// for the requested tickers, pushes them through the in-process queues and
// exits once every task has been worked off. Configuration comes from
// CFG_PATH like the long-running services; without it the defaults apply.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/catalystscan/backend/chassis/logging"

	"github.com/catalystscan/backend/chassis/config"
	"github.com/catalystscan/backend/chassis/queue"
	"github.com/catalystscan/backend/chassis/storage"
	"github.com/catalystscan/backend/dashboard"
	"github.com/catalystscan/backend/doctext"
	"github.com/catalystscan/backend/extract"
	"github.com/catalystscan/backend/ingest/asx"
	"github.com/catalystscan/backend/ingest/sec"
	"github.com/catalystscan/backend/llm"
	"github.com/catalystscan/backend/pipeline"
	"github.com/catalystscan/backend/resulter"
	"github.com/catalystscan/backend/scheduler"
	"github.com/catalystscan/backend/submitter"
	"github.com/catalystscan/backend/supervisor"
	"github.com/catalystscan/backend/worker"
)

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func workers(n int) int {
	if n <= 0 {
		return 2
	}
	return n
}

func main() {
	var (
		exchange   = flag.String("exchange", "ASX", "exchange to scan: ASX or SEC")
		tickers    = flag.String("tickers", "", "comma separated tickers")
		period     = flag.String("period", "3months", "lookback: week, month, 3months or 6months")
		types      = flag.String("types", "", "comma separated filing types (default quarterly / 10-Q)")
		fileURL    = flag.String("url", "", "scan a single document by URL instead of discovering filings")
		ticker     = flag.String("ticker", "", "ticker for -url mode")
		filingType = flag.String("filing-type", "", "filing type for -url mode")
		filingDate = flag.String("date", "", "filing date for -url mode, YYYY-MM-DD")
	)
	flag.Parse()

	appCfg, err := config.Read()
	if err != nil {
		appCfg, err = config.Parse([]byte{})
		if err != nil {
			log.WithFields(log.Fields{
				"event": "config_read_failed",
			}).Fatal(err)
		}
	}
	log.Init("scan", "info", appCfg.Ingest.LogDir)
	log.WithFields(log.Fields{
		"event": "init_service",
	}).Info("service initialized")
	secrets, err := config.RequireOpenAIKey()
	if err != nil {
		log.WithFields(log.Fields{
			"event": "read_secrets_failed",
		}).Fatal(err)
	}

	repo, err := storage.InitSQLiteRepository(storage.Config{Path: appCfg.Storage.Path})
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_storage_failed",
		}).Fatal(err)
	}
	results, err := storage.InitSQLiteResults(appCfg.Storage.ResultsPath)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_storage_failed",
		}).Fatal(err)
	}

	intake := queue.InitLocalQueue(1024)
	dispatch := queue.InitLocalQueue(1024)
	outcomes := queue.InitLocalQueue(1024)

	llmClient := llm.New(llm.Config{
		BaseURL: appCfg.LLM.BaseURL,
		Model:   appCfg.LLM.Model,
		APIKey:  secrets.OpenAIKey,
		Timeout: time.Duration(appCfg.LLM.TimeoutSeconds) * time.Second,
		Retries: appCfg.LLM.Retries,
	})
	text := doctext.NewPoppler(doctext.Config{
		MinCharsPerPage: appCfg.OCR.MinCharsPerPage,
		Languages:       appCfg.OCR.Languages,
		DPI:             appCfg.OCR.DPI,
	})
	asxClient := asx.New(asx.Config{DataDir: appCfg.Ingest.ASXDir})
	secClient := sec.New(sec.Config{
		UserAgent: appCfg.Ingest.UserAgent,
		DataDir:   appCfg.Ingest.SECDir,
	})
	pipe := pipeline.New(extract.Deps{LLM: llmClient, Text: text}, results, appCfg.Ingest.ProcessedDir)
	pipe.RegisterDownloader("ASX", pipeline.ASXDownloader{Client: asxClient})
	pipe.RegisterDownloader("SEC", pipeline.SECDownloader{Client: secClient})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	var group sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	submitter.Run(ctx, &submitter.Config{
		Queue:      intake,
		Repository: repo,
		Workers:    workers(appCfg.Submitter.Workers),
	}, &group)
	scheduler.Run(ctx, &scheduler.Config{
		Queue:      dispatch,
		Repository: repo,
		Workers:    workers(appCfg.Scheduler.Workers),
	}, &group)
	worker.Run(ctx, &worker.Config{
		QueueSrc: dispatch,
		QueueDst: outcomes,
		Pipeline: pipe,
		Workers:  workers(appCfg.Worker.Workers),
	}, &group)
	resulter.Run(ctx, &resulter.Config{
		Queue:      outcomes,
		Repository: repo,
		Workers:    workers(appCfg.Resulter.Workers),
	}, &group)
	supervisor.Run(ctx, &supervisor.Config{
		Repository:      repo,
		Workers:         1,
		StaleTimeout:    600,
		RepairBatchSize: 10,
		Expiration:      86400,
	}, &group)

	var caps map[string]int64
	if appCfg.Dashboard.MarketCapCSV != "" {
		caps, err = sec.LoadMarketCaps(appCfg.Dashboard.MarketCapCSV)
		if err != nil {
			log.WithFields(log.Fields{
				"event": "market_cap_load_failed",
				"path":  appCfg.Dashboard.MarketCapCSV,
			}).Error(err)
		}
	}
	board := dashboard.New(dashboard.Config{
		Results:    results,
		Intake:     intake,
		ASX:        asxClient,
		SEC:        secClient,
		MarketCaps: caps,
	})
	request := dashboard.ScanRequest{
		Exchange:    *exchange,
		Tickers:     splitList(*tickers),
		Period:      *period,
		FilingTypes: splitList(*types),
		FileURL:     *fileURL,
		FilingType:  *filingType,
		FilingDate:  *filingDate,
		Ticker:      *ticker,
	}
	if err := board.StartScan(request); err != nil {
		log.WithFields(log.Fields{
			"event": "scan_start_failed",
		}).Fatal(err)
	}

	// Exit once discovery is done, the queues are drained and no task is
	// left in flight. Two quiet rounds guard against a task that is between
	// a queue and the database at check time.
	idleRounds := 0
	ticks := time.NewTicker(2 * time.Second)
	defer ticks.Stop()
loop:
	for {
		select {
		case <-done:
			log.WithFields(log.Fields{
				"event": "ctx_cancel",
			}).Info("received syscall")
			break loop
		case <-ticks.C:
			st := board.Status()
			active, err := repo.CountActive()
			if err != nil {
				log.WithFields(log.Fields{
					"event": "count_active_failed",
				}).Error(err)
				continue
			}
			log.WithFields(log.Fields{
				"event":     "scan_progress",
				"running":   st.Running,
				"submitted": st.Submitted,
				"active":    active,
			}).Info("scan progress")
			if !st.Running && active == 0 && intake.Len() == 0 && dispatch.Len() == 0 && outcomes.Len() == 0 {
				idleRounds++
				if idleRounds >= 2 {
					break loop
				}
				continue
			}
			idleRounds = 0
		}
	}
	cancel()
	group.Wait()

	final := board.Status()
	log.WithFields(log.Fields{
		"event":     "scan_finished",
		"submitted": final.Submitted,
		"skipped":   len(final.Skipped),
		"failed":    len(final.Failed),
	}).Info("scan finished")
}
