package sec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const tickerMapDoc = `{
	"fields": ["cik", "name", "ticker", "exchange"],
	"data": [
		[320193, "Apple Inc.", "AAPL", "Nasdaq"],
		[1318605, "Tesla, Inc.", "TSLA", "Nasdaq"],
		[99999, "Broken Row"]
	]
}`

func TestCIKMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "CatalystScan") {
			t.Errorf("user agent = %q", got)
		}
		w.Write([]byte(tickerMapDoc))
	}))
	defer srv.Close()

	c := New(Config{TickerMapURL: srv.URL, HTTP: srv.Client()})
	companies, err := c.CIKMap(context.Background())
	if err != nil {
		t.Fatalf("CIKMap: %v", err)
	}
	want := []Company{
		{CIK: 320193, Ticker: "AAPL", Name: "Apple Inc.", Exchange: "Nasdaq"},
		{CIK: 1318605, Ticker: "TSLA", Name: "Tesla, Inc.", Exchange: "Nasdaq"},
	}
	if diff := cmp.Diff(want, companies); diff != "" {
		t.Errorf("companies mismatch (-want +got):\n%s", diff)
	}
}

const submissionsDoc = `{
	"filings": {
		"recent": {
			"form": ["8-K", "10-Q", "10-Q"],
			"accessionNumber": ["0001-23-000001", "0001-23-000002", "0001-23-000003"],
			"filingDate": ["2026-08-01", "2026-07-15", "2026-04-20"],
			"primaryDocument": ["ev.htm", "q2.htm", "q1.htm"]
		}
	}
}`

func TestRecentFilings(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(submissionsDoc))
	}))
	defer srv.Close()

	c := New(Config{SubmissionsURL: srv.URL, ArchivesURL: "https://www.sec.gov/Archives/edgar/data", HTTP: srv.Client()})
	start, _ := time.Parse("2006-01-02", "2026-02-01")
	end, _ := time.Parse("2006-01-02", "2026-08-20")

	filings, err := c.RecentFilings(context.Background(), Company{CIK: 320193, Ticker: "AAPL"}, start, end)
	if err != nil {
		t.Fatalf("RecentFilings: %v", err)
	}
	if gotPath != "/CIK0000320193.json" {
		t.Errorf("request path = %q", gotPath)
	}
	// newest matching 10-Q only
	want := []Filing{{
		CIK:        320193,
		Ticker:     "AAPL",
		Form:       "10-Q",
		ReportDate: "2026-07-15",
		URL:        "https://www.sec.gov/Archives/edgar/data/320193/000123000002/q2.htm",
	}}
	if diff := cmp.Diff(want, filings); diff != "" {
		t.Errorf("filings mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentFilingsOutsideWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(submissionsDoc))
	}))
	defer srv.Close()

	c := New(Config{SubmissionsURL: srv.URL, HTTP: srv.Client()})
	start, _ := time.Parse("2006-01-02", "2020-01-01")
	end, _ := time.Parse("2006-01-02", "2020-12-31")
	filings, err := c.RecentFilings(context.Background(), Company{CIK: 1}, start, end)
	if err != nil {
		t.Fatalf("RecentFilings: %v", err)
	}
	if len(filings) != 0 {
		t.Errorf("filings = %+v, want none", filings)
	}
}

func TestDownloadSkipsExisting(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("<html>10-Q</html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := New(Config{DataDir: dir, HTTP: srv.Client()})
	f := Filing{CIK: 320193, Form: "10-Q", ReportDate: "2026-07-15", URL: srv.URL + "/q2.htm"}

	path1, err := c.Download(context.Background(), f)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	path2, err := c.Download(context.Background(), f)
	if err != nil {
		t.Fatalf("Download again: %v", err)
	}
	if path1 != path2 {
		t.Errorf("paths differ: %q vs %q", path1, path2)
	}
	if hits != 1 {
		t.Errorf("server hits = %d, want 1", hits)
	}
	body, _ := os.ReadFile(path1)
	if string(body) != "<html>10-Q</html>" {
		t.Errorf("body = %q", body)
	}
}

func TestParseMarketCaps(t *testing.T) {
	csvDoc := "ticker,market_cap\nAAPL,3000000000000\nsmol,250000000\nBAD,n/a\n"
	caps, err := parseMarketCaps(strings.NewReader(csvDoc))
	if err != nil {
		t.Fatalf("parseMarketCaps: %v", err)
	}
	if caps["SMOL"] != 250000000 {
		t.Errorf("SMOL cap = %d", caps["SMOL"])
	}
	if _, ok := caps["BAD"]; ok {
		t.Error("non-numeric cap should be dropped")
	}
}

func TestFilterMarketCap(t *testing.T) {
	companies := []Company{
		{Ticker: "BIG"}, {Ticker: "MID"}, {Ticker: "TINY"}, {Ticker: "UNKNOWN"},
	}
	caps := map[string]int64{
		"BIG":  5_000_000_000,
		"MID":  450_000_000,
		"TINY": 12_000_000,
	}
	kept := FilterMarketCap(companies, caps, MarketCapMin, MarketCapMax)
	if len(kept) != 1 || kept[0].Ticker != "MID" {
		t.Errorf("kept = %+v, want only MID", kept)
	}
}

func TestDateRange(t *testing.T) {
	start, end := DateRange("today")
	if !start.Equal(end) {
		t.Errorf("today range should collapse: %v %v", start, end)
	}
	start, end = DateRange("6m")
	if days := end.Sub(start).Hours() / 24; days < 179 || days > 181 {
		t.Errorf("6m window = %.0f days", days)
	}
}
