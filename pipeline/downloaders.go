package pipeline

import (
	"context"

	"github.com/catalystscan/backend/ingest/asx"
	"github.com/catalystscan/backend/ingest/sec"
)

// ASXDownloader adapts the announcements client to the pipeline.
type ASXDownloader struct {
	Client *asx.Client
}

// Fetch ...
func (d ASXDownloader) Fetch(ctx context.Context, fileURL string) (string, error) {
	localPath, _, err := d.Client.DownloadFiling(ctx, fileURL)
	return localPath, err
}

// SECDownloader adapts the EDGAR client to the pipeline.
type SECDownloader struct {
	Client *sec.Client
}

// Fetch ...
func (d SECDownloader) Fetch(ctx context.Context, fileURL string) (string, error) {
	return d.Client.DownloadURL(ctx, fileURL)
}
