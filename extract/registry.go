package extract

import (
	"fmt"
	"strings"

	"github.com/catalystscan/backend/catalyst"
)

// ForFiling returns a fresh extractor for the exchange and filing type.
// Filing type synonyms from announcements and scan requests are accepted.
func ForFiling(exchange, filingType string, deps Deps) (Extractor, catalyst.FilingType, error) {
	ft, ok := catalyst.NormalizeFilingType(filingType)
	if !ok {
		return nil, "", fmt.Errorf("unknown filing type %q", filingType)
	}

	switch strings.ToUpper(exchange) {
	case "ASX":
		switch ft {
		case catalyst.FilingASXAnnual:
			return NewASXAnnual(deps), ft, nil
		case catalyst.FilingASXQuarterly:
			return NewASXQuarterly(deps), ft, nil
		case catalyst.FilingASXInvestor:
			return NewASXInvestor(deps), ft, nil
		}
	case "SEC":
		if ft == catalyst.FilingSEC10Q {
			return NewSEC10Q(deps), ft, nil
		}
	}
	return nil, "", fmt.Errorf("no extractor registered for %s/%s", exchange, filingType)
}
