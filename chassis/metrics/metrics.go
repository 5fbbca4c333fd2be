// Package metrics holds the Prometheus collectors shared by the scan
// services. Every service exposes them on /metrics via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FilingsDownloaded counts filings fetched from the exchanges.
	FilingsDownloaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalystscan_filings_downloaded_total",
			Help: "Filings downloaded, by exchange.",
		},
		[]string{"exchange"},
	)

	// TasksProcessed counts scan tasks by action and outcome.
	TasksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalystscan_tasks_processed_total",
			Help: "Scan tasks processed, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	// LLMRequests counts chat completion calls.
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalystscan_llm_requests_total",
			Help: "LLM API calls, by status.",
		},
		[]string{"status"},
	)

	// LLMTokens counts tokens reported by the LLM API.
	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalystscan_llm_tokens_total",
			Help: "LLM tokens used, by kind (prompt, completion).",
		},
		[]string{"kind"},
	)

	// OCRPages counts pages pushed through Tesseract.
	OCRPages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalystscan_ocr_pages_total",
			Help: "PDF pages recognized via OCR.",
		},
	)

	// Statements counts extracted forward-looking statements.
	Statements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalystscan_statements_total",
			Help: "Forward-looking statements extracted, by impact.",
		},
		[]string{"impact"},
	)
)

func init() {
	prometheus.MustRegister(
		FilingsDownloaded,
		TasksProcessed,
		LLMRequests,
		LLMTokens,
		OCRPages,
		Statements,
	)
}
