package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/catalystscan/backend/chassis/logging"

	"github.com/catalystscan/backend/chassis/config"
	"github.com/catalystscan/backend/chassis/queue"
	"github.com/catalystscan/backend/chassis/storage"
	"github.com/catalystscan/backend/dashboard"
	"github.com/catalystscan/backend/ingest/asx"
	"github.com/catalystscan/backend/ingest/sec"
)

func main() {
	appCfg, err := config.Read()

	if err != nil {
		log.WithFields(log.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log.Init("dashboard", appCfg.Dashboard.LogLevel, appCfg.Ingest.LogDir)
	log.WithFields(log.Fields{
		"event": "init_service",
	}).Info("service initialized")
	// Scan requests go to the submitter intake queue.
	queueCfg := queue.Config{
		Name:    appCfg.Submitter.Queuesrc.Name,
		URL:     appCfg.Submitter.Queuesrc.URL,
		Retries: appCfg.Submitter.Queuesrc.Retries,

		//AWS specific
		Region:             appCfg.AWS.Region,
		CredentialsFile:    appCfg.AWS.CredentialsFile,
		CredentialsProfile: appCfg.AWS.CredentialsProfile,
	}
	queueClient := queue.InitAWSQueue(queueCfg)
	results, err := storage.InitSQLiteResults(appCfg.Storage.ResultsPath)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_storage_failed",
		}).Fatal(err)
	}
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
	srv := dashboard.New(dashboard.Config{
		Addr:    appCfg.Dashboard.Addr,
		Results: results,
		Intake:  queueClient,
		ASX:     asx.New(asx.Config{DataDir: appCfg.Ingest.ASXDir}),
		SEC: sec.New(sec.Config{
			UserAgent: appCfg.Ingest.UserAgent,
			DataDir:   appCfg.Ingest.SECDir,
		}),
		MarketCaps: caps,
	})
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-done
		log.WithFields(log.Fields{
			"event": "ctx_cancel",
		}).Info("received syscall")
		cancel()
	}()
	if err := srv.Run(ctx); err != nil && err != http.ErrServerClosed {
		log.WithFields(log.Fields{
			"event": "dashboard_stopped",
		}).Error(err)
	}
}
