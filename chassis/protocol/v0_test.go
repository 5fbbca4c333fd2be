package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{
		ID:     "42",
		Method: MethodScanASX,
		Params: map[string]string{
			ParamDocID:      "BHP2024-06-30QUARTERLY",
			ParamFileURL:    "https://announcements.asx.com.au/asxpdf/20240630/pdf/abc.pdf",
			ParamExchange:   "ASX",
			ParamFilingType: "quarterly",
		},
	}
	raw, err := req.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	got := &Request{}
	if err := got.FromJSON(raw); err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Protocol != "2.0" {
		t.Errorf("protocol = %q, want 2.0", got.Protocol)
	}
	if diff := cmp.Diff(req.Params, got.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestResponseErrorOmitted(t *testing.T) {
	resp := &Response{
		ID:     "42",
		Result: map[string]string{"status": "ok", "count": "3"},
	}
	raw, err := resp.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	got := &Response{}
	if err := got.FromJSON(raw); err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Error != nil {
		t.Errorf("error should be omitted, got %v", got.Error)
	}
	if got.Result["count"] != "3" {
		t.Errorf("count = %q, want 3", got.Result["count"])
	}
}
