package asx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const announcementsPage = `
<html><body>
<announcement_data>
<table>
<thead><tr><th>Date</th><th>Headline</th></tr></thead>
<tbody>
<tr>
  <td>24/07/2026 10:15 AM</td>
  <td><a href="/asx/statistics/displayAnnouncement.do?display=pdf&idsId=1111">Quarterly Activities Report</a></td>
</tr>
<tr>
  <td>22/07/2026 9:00 AM</td>
  <td><a href="/asx/statistics/displayAnnouncement.do?display=pdf&idsId=2222">Investor Presentation</a></td>
</tr>
<tr>
  <td>20/07/2026 8:30 AM</td>
  <td><a href="/asx/statistics/displayAnnouncement.do?display=pdf&idsId=3333">Change of Director's Interest Notice</a></td>
</tr>
</tbody>
</table>
</announcement_data>
</body></html>`

func TestParseAnnouncements(t *testing.T) {
	anns, err := parseAnnouncements(strings.NewReader(announcementsPage), "XYZ", "https://www.asx.com.au")
	if err != nil {
		t.Fatalf("parseAnnouncements: %v", err)
	}
	want := []Announcement{
		{
			Date:       "2026-07-24",
			Ticker:     "XYZ",
			Title:      "Quarterly Activities Report",
			FilingType: "quarterly",
			PageURL:    "https://www.asx.com.au/asx/statistics/displayAnnouncement.do?display=pdf&idsId=1111",
		},
		{
			Date:       "2026-07-22",
			Ticker:     "XYZ",
			Title:      "Investor Presentation",
			FilingType: "investor",
			PageURL:    "https://www.asx.com.au/asx/statistics/displayAnnouncement.do?display=pdf&idsId=2222",
		},
		{
			Date:       "2026-07-20",
			Ticker:     "XYZ",
			Title:      "Change of Director's Interest Notice",
			FilingType: "other",
			PageURL:    "https://www.asx.com.au/asx/statistics/displayAnnouncement.do?display=pdf&idsId=3333",
		},
	}
	if diff := cmp.Diff(want, anns); diff != "" {
		t.Errorf("announcements mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Quarterly Activities Report", "quarterly"},
		{"Appendix 4C Quarterly Cash Flow Report", "quarterly"},
		{"Annual Report to Shareholders", "annual"},
		{"Investor Presentation - AGM", "investor"},
		{"Trading Halt", "other"},
	}
	for _, tt := range tests {
		if got := ClassifyTitle(tt.title); got != tt.want {
			t.Errorf("ClassifyTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	for raw, want := range map[string]string{
		"24/07/2026":   "2026-07-24",
		"2026-07-24":   "2026-07-24",
		"24 Jul 2026":  "2026-07-24",
		"24 July 2026": "2026-07-24",
	} {
		if got := parseDate(raw).Format("2006-01-02"); got != want {
			t.Errorf("parseDate(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestExtractPDFURL(t *testing.T) {
	t.Run("hidden input", func(t *testing.T) {
		page := `<html><body><form>
			<input type="hidden" name="pdfURL" value="/asxpdf/20260724/pdf/06abc123.pdf">
			</form></body></html>`
		want := "https://announcements.asx.com.au/asxpdf/20260724/pdf/06abc123.pdf"
		if got := ExtractPDFURL(page); got != want {
			t.Errorf("ExtractPDFURL = %q, want %q", got, want)
		}
	})
	t.Run("regex fallback", func(t *testing.T) {
		page := `window.open("https://announcements.asx.com.au/asxpdf/20260724/pdf/06abc123.pdf");`
		want := "https://announcements.asx.com.au/asxpdf/20260724/pdf/06abc123.pdf"
		if got := ExtractPDFURL(page); got != want {
			t.Errorf("ExtractPDFURL = %q, want %q", got, want)
		}
	})
	t.Run("no pdf", func(t *testing.T) {
		if got := ExtractPDFURL("<html><body>nothing here</body></html>"); got != "" {
			t.Errorf("ExtractPDFURL = %q, want empty", got)
		}
	})
}

func TestDownloadFiling(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><input name="pdfURL" value="` + srvURL + `/file.pdf"></body></html>`))
	})
	mux.HandleFunc("/file.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	dir := t.TempDir()
	c := New(Config{DataDir: dir, HTTP: srv.Client()})
	localPath, finalURL, err := c.DownloadFiling(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("DownloadFiling: %v", err)
	}
	if finalURL != srv.URL+"/file.pdf" {
		t.Errorf("finalURL = %q", finalURL)
	}
	if filepath.Dir(localPath) != dir {
		t.Errorf("localPath %q not under %q", localPath, dir)
	}
	body, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(body) != "%PDF-1.4 fake" {
		t.Errorf("body = %q", body)
	}
}

func TestDownloadFilingDirectPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 direct"))
	}))
	defer srv.Close()

	c := New(Config{DataDir: t.TempDir(), HTTP: srv.Client()})
	localPath, _, err := c.DownloadFiling(context.Background(), srv.URL+"/doc.pdf")
	if err != nil {
		t.Fatalf("DownloadFiling: %v", err)
	}
	body, _ := os.ReadFile(localPath)
	if string(body) != "%PDF-1.4 direct" {
		t.Errorf("body = %q", body)
	}
}
