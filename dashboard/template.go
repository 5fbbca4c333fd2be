package dashboard

import "html/template"

type indexData struct {
	Rows     []statementRow
	Exchange string
	Impact   string
	Scan     ScanState
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>CatalystScan</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #1a1a2e; }
h1 { margin-bottom: 0; }
.caption { color: #666; margin-top: 0.2rem; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; font-size: 0.9rem; }
th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; vertical-align: top; }
th { background: #16213e; color: #fff; }
tr:nth-child(even) { background: #f5f6fa; }
.impact-HIGH { color: #c0392b; font-weight: bold; }
.impact-MED { color: #d35400; }
.impact-LOW { color: #7f8c8d; }
.filters, .scanbox { margin: 1rem 0; padding: 0.8rem; background: #f0f1f6; border-radius: 6px; }
.scan-status { font-size: 0.85rem; color: #444; }
</style>
</head>
<body>
<h1>CatalystScan</h1>
<p class="caption">Batch scanning of ASX &amp; SEC filings for price-moving forward-looking statements</p>

<div class="filters">
<form method="get" action="/">
Exchange:
<select name="exchange">
<option value="" {{if eq .Exchange ""}}selected{{end}}>All</option>
<option value="ASX" {{if eq .Exchange "ASX"}}selected{{end}}>ASX</option>
<option value="SEC" {{if eq .Exchange "SEC"}}selected{{end}}>SEC</option>
</select>
Impact:
<select name="impact">
<option value="" {{if eq .Impact ""}}selected{{end}}>All</option>
<option value="HIGH" {{if eq .Impact "HIGH"}}selected{{end}}>HIGH</option>
<option value="MED" {{if eq .Impact "MED"}}selected{{end}}>MED</option>
<option value="LOW" {{if eq .Impact "LOW"}}selected{{end}}>LOW</option>
</select>
<button type="submit">Apply</button>
<a href="/api/results.csv?exchange={{.Exchange}}&impact={{.Impact}}">Download CSV</a>
<a href="/api/results?exchange={{.Exchange}}&impact={{.Impact}}">Download JSON</a>
</form>
</div>

<div class="scanbox">
<form id="scanform" onsubmit="return startScan(this)">
Exchange:
<select name="exchange">
<option value="ASX">ASX</option>
<option value="SEC">SEC</option>
</select>
Tickers: <input name="tickers" placeholder="BHP, PLS" size="24">
Period:
<select name="period">
<option value="week">Week</option>
<option value="month">Month</option>
<option value="3months" selected>3 months</option>
<option value="6months">6 months</option>
</select>
Filing types: <input name="types" placeholder="quarterly, annual" size="20">
<button type="submit" {{if .Scan.Running}}disabled{{end}}>Start scan</button>
</form>
<script>
function startScan(f) {
	var list = function(v) {
		return v.split(",").map(function(s) { return s.trim(); }).filter(Boolean);
	};
	var body = {
		exchange: f.exchange.value,
		tickers: list(f.tickers.value),
		period: f.period.value,
		filing_types: list(f.types.value)
	};
	fetch("/api/scan", {
		method: "POST",
		headers: {"Content-Type": "application/json"},
		body: JSON.stringify(body)
	}).then(function(r) {
		return r.text().then(function(t) {
			if (!r.ok) { alert(t); } else { location.reload(); }
		});
	});
	return false;
}
</script>
<div class="scan-status">
{{if .Scan.Running}}
Scan running: {{.Scan.Done}}/{{.Scan.Total}} companies, {{.Scan.Submitted}} filings submitted
{{else if .Scan.FinishedAt}}
Last scan finished {{.Scan.FinishedAt}}: {{.Scan.Submitted}} filings submitted,
{{len .Scan.Skipped}} skipped, {{len .Scan.Failed}} failed
{{else}}
No scan started yet.
{{end}}
</div>
</div>

<h2>{{len .Rows}} statements</h2>
<table>
<tr>
<th>Doc</th><th>Exchange</th><th>Filing</th><th>Date</th>
<th>Statement</th><th>Impact</th><th>Tone</th><th>Forecast</th><th>Score</th>
</tr>
{{range .Rows}}
<tr>
<td>{{.DocID}}</td>
<td>{{.Exchange}}</td>
<td>{{.FilingType}}</td>
<td>{{.FilingDate}}</td>
<td>{{.Preview}}</td>
<td class="impact-{{.Impact}}">{{.Impact}}</td>
<td>{{.Tone}}</td>
<td>{{.ForecastType}}</td>
<td>{{.Score}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))
