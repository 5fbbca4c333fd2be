package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/catalystscan/backend/chassis/logging"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/catalystscan/backend/chassis/config"
	"github.com/catalystscan/backend/chassis/queue"
	"github.com/catalystscan/backend/chassis/storage"
	"github.com/catalystscan/backend/doctext"
	"github.com/catalystscan/backend/extract"
	"github.com/catalystscan/backend/ingest/asx"
	"github.com/catalystscan/backend/ingest/sec"
	"github.com/catalystscan/backend/llm"
	"github.com/catalystscan/backend/pipeline"
	"github.com/catalystscan/backend/worker"
)

func main() {
	appCfg, err := config.Read()

	if err != nil {
		log.WithFields(log.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log.Init("worker", appCfg.Worker.LogLevel, appCfg.Ingest.LogDir)
	log.WithFields(log.Fields{
		"event": "init_service",
	}).Info("service initialized")
	secrets, err := config.RequireOpenAIKey()
	if err != nil {
		log.WithFields(log.Fields{
			"event": "read_secrets_failed",
		}).Fatal(err)
	}
	// Inbound queue
	queueSrcCfg := queue.Config{
		Name:    appCfg.Worker.Queuesrc.Name,
		URL:     appCfg.Worker.Queuesrc.URL,
		Retries: appCfg.Worker.Queuesrc.Retries,

		//AWS specific
		Region:             appCfg.AWS.Region,
		CredentialsFile:    appCfg.AWS.CredentialsFile,
		CredentialsProfile: appCfg.AWS.CredentialsProfile,
	}
	queueSrcClient := queue.InitAWSQueue(queueSrcCfg)
	// Results queue
	queueDstCfg := queue.Config{
		Name:    appCfg.Worker.Queuedst.Name,
		URL:     appCfg.Worker.Queuedst.URL,
		Retries: appCfg.Worker.Queuedst.Retries,

		//AWS specific
		Region:             appCfg.AWS.Region,
		CredentialsFile:    appCfg.AWS.CredentialsFile,
		CredentialsProfile: appCfg.AWS.CredentialsProfile,
	}
	queueDstClient := queue.InitAWSQueue(queueDstCfg)
	results, err := storage.InitSQLiteResults(appCfg.Storage.ResultsPath)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_storage_failed",
		}).Fatal(err)
	}
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
	pipe := pipeline.New(extract.Deps{LLM: llmClient, Text: text}, results, appCfg.Ingest.ProcessedDir)
	pipe.RegisterDownloader("ASX", pipeline.ASXDownloader{
		Client: asx.New(asx.Config{DataDir: appCfg.Ingest.ASXDir}),
	})
	pipe.RegisterDownloader("SEC", pipeline.SECDownloader{
		Client: sec.New(sec.Config{
			UserAgent: appCfg.Ingest.UserAgent,
			DataDir:   appCfg.Ingest.SECDir,
		}),
	})
	cfg := &worker.Config{
		QueueSrc: queueSrcClient,
		QueueDst: queueDstClient,
		Pipeline: pipe,
		Workers:  appCfg.Worker.Workers,
	}
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	var group sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	worker.Run(ctx, cfg, &group)
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":2112",
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen: %s\n", err)
		}
	}()
	<-done
	log.WithFields(log.Fields{
		"event": "ctx_cancel",
	}).Info("received syscall")
	cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server Shutdown Failed:%+v", err)
	}
	group.Wait()
}
