package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/catalystscan/backend/catalyst"
	"github.com/catalystscan/backend/chassis/storage"
	"github.com/catalystscan/backend/doctext"
	"github.com/catalystscan/backend/extract"
)

type fakeResults struct {
	saved []*storage.Result
}

func (f *fakeResults) SaveResult(r *storage.Result) error {
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeResults) ListResults(exchange string, limit int) ([]*storage.Result, error) {
	return f.saved, nil
}

type fakeText struct{ text string }

func (f fakeText) Text(ctx context.Context, path string) (doctext.Result, error) {
	return doctext.Result{Text: f.text, Source: doctext.SourceTextLayer, Pages: 1}, nil
}

type fakeLLM struct{ answer string }

func (f fakeLLM) Ask(ctx context.Context, prompt string) (string, error) {
	return f.answer, nil
}

type fakeDownloader struct {
	path    string
	fetched []string
}

func (f *fakeDownloader) Fetch(ctx context.Context, fileURL string) (string, error) {
	f.fetched = append(f.fetched, fileURL)
	return f.path, nil
}

func TestMakeDocID(t *testing.T) {
	tests := []struct {
		name                     string
		ticker, date, filingType string
		want                     string
	}{
		{"basic", "bhx", "2026-07-24", "quarterly", "BHX2026-07-24QUARTERLY"},
		{"no ticker", "", "2026-07-24", "10-Q", "DOC2026-07-2410-Q"},
		{"spaces and slashes stripped", "abc", "2026-01-01", "investor presentation/deck", "ABC2026-01-01INVESTORPRESENTATIONDECK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MakeDocID(tt.ticker, tt.date, tt.filingType); got != tt.want {
				t.Errorf("MakeDocID = %q, want %q", got, tt.want)
			}
		})
	}

	long := MakeDocID(strings.Repeat("X", 80), "2026-07-24", "annual")
	if len(long) != 64 {
		t.Errorf("doc id length = %d, want capped at 64", len(long))
	}
}

func pipelineForTest(t *testing.T, results storage.ResultRepository, text string, llmAnswer string) *Pipeline {
	t.Helper()
	deps := extract.Deps{LLM: fakeLLM{answer: llmAnswer}, Text: fakeText{text: text}}
	return New(deps, results, filepath.Join(t.TempDir(), "processed"))
}

func TestProcessFileDownloadsAndPersists(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "asx_abc.pdf")
	if err := os.WriteFile(scratch, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	dl := &fakeDownloader{path: scratch}

	results := &fakeResults{}
	p := pipelineForTest(t, results,
		"Operations Update\nDrilling is expected to commence in Q3 at the project site.",
		`[{"text":"Drilling is expected to commence in Q3 at the project site.","impact":"HIGH","tone":"positive","forecast_type":"TIMING","score":8,"entities":[]}]`,
	)
	p.RegisterDownloader("ASX", dl)

	var statuses []string
	out, err := p.ProcessFile(context.Background(), Request{
		FileURL:    "https://www.asx.com.au/announcement/1111",
		Exchange:   "ASX",
		FilingType: "quarterly",
		Ticker:     "BHX",
		FilingDate: "2026-07-24",
	}, func(msg string) { statuses = append(statuses, msg) })
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}

	if out.Status != "ok" || out.Count != 1 {
		t.Errorf("outcome = %+v", out)
	}
	if len(dl.fetched) != 1 {
		t.Errorf("downloader calls = %d", len(dl.fetched))
	}
	if len(statuses) == 0 {
		t.Error("no status callbacks fired")
	}

	// scratch download removed after extraction
	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Error("scratch download should be deleted")
	}

	// artifact file holds the statement list
	body, err := os.ReadFile(out.FilePath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var items []catalyst.Disclosure
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if len(items) != 1 || items[0].DocID != "BHX2026-07-24QUARTERLY" {
		t.Errorf("artifact items = %+v", items)
	}

	// results row mirrors the artifact
	if len(results.saved) != 1 {
		t.Fatalf("results saved = %d", len(results.saved))
	}
	row := results.saved[0]
	if row.DocID != "BHX2026-07-24QUARTERLY" || row.Exchange != "ASX" || row.FilingType != "quarterly" {
		t.Errorf("row = %+v", row)
	}
	if row.ID != out.RecordID || len(row.ID) != 40 {
		t.Errorf("record id = %q", row.ID)
	}
	var art struct {
		Items []catalyst.Disclosure `json:"items"`
		File  string                `json:"file"`
	}
	if err := json.Unmarshal([]byte(row.OutputJSON), &art); err != nil {
		t.Fatalf("decode output json: %v", err)
	}
	if len(art.Items) != 1 || art.File != out.FilePath {
		t.Errorf("output json = %+v", art)
	}
}

func TestProcessFileLocalPathKept(t *testing.T) {
	local := filepath.Join(t.TempDir(), "320193_10-Q_2026-07-15.html")
	if err := os.WriteFile(local, []byte("<html><p>Item 2. Management's Discussion and Analysis</p><p>We anticipate completing the pending acquisition in fiscal 2026.</p></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := &fakeResults{}
	deps := extract.Deps{LLM: fakeLLM{answer: `[{"text":"We anticipate completing the pending acquisition in fiscal 2026.","impact":"MED","tone":"neutral","forecast_type":"CONTRACTUAL","score":6,"entities":[]}]`}}
	p := New(deps, results, filepath.Join(t.TempDir(), "processed"))

	out, err := p.ProcessFile(context.Background(), Request{
		FileURL:    local,
		Exchange:   "SEC",
		FilingType: "10-Q",
		DocID:      "320193_10-Q_2026-07-15",
		FilingDate: "2026-07-15",
	}, nil)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if out.Count != 1 {
		t.Errorf("count = %d", out.Count)
	}

	// pre-existing local files are never deleted
	if _, err := os.Stat(local); err != nil {
		t.Errorf("local filing should survive: %v", err)
	}
}

func TestProcessFileNoItems(t *testing.T) {
	local := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(local, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := &fakeResults{}
	p := pipelineForTest(t, results, "Nothing noteworthy in this document text.", `[]`)

	out, err := p.ProcessFile(context.Background(), Request{
		FileURL:    local,
		Exchange:   "ASX",
		FilingType: "quarterly",
		Ticker:     "XYZ",
	}, nil)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if out.Status != "no_items" || out.Count != 0 {
		t.Errorf("outcome = %+v", out)
	}
	// an empty run still persists, so reruns are visible
	if len(results.saved) != 1 {
		t.Errorf("results saved = %d", len(results.saved))
	}
}

func TestProcessFileUnknownExchange(t *testing.T) {
	p := pipelineForTest(t, &fakeResults{}, "", "[]")
	_, err := p.ProcessFile(context.Background(), Request{
		FileURL:    "https://example.com/doc.pdf",
		Exchange:   "NYSE",
		FilingType: "10-Q",
	}, nil)
	if err == nil {
		t.Fatal("expected error for unregistered exchange")
	}
}
