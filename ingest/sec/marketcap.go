package sec

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadMarketCaps reads a ticker,market_cap CSV. A header row is detected and
// skipped; rows with a blank or non-numeric cap are ignored.
func LoadMarketCaps(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseMarketCaps(f)
}

func parseMarketCaps(r io.Reader) (map[string]int64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	caps := map[string]int64{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read market cap csv: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		cap, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
		if err != nil {
			continue
		}
		caps[strings.ToUpper(strings.TrimSpace(row[0]))] = cap
	}
	return caps, nil
}

// FilterMarketCap keeps companies whose cap falls inside [min, max]. A
// company missing from caps is treated as zero, which drops it.
func FilterMarketCap(companies []Company, caps map[string]int64, min, max int64) []Company {
	var kept []Company
	for _, company := range companies {
		cap := caps[strings.ToUpper(company.Ticker)]
		if cap >= min && cap <= max {
			kept = append(kept, company)
		}
	}
	return kept
}
