package client

import (
	"encoding/json"
	"strings"

	"github.com/aequasi/expensify-to-excel/internal/domain"
)

// Extractor locates the transaction descriptor inside receipt page script text:
// everything after Marker up to the next Terminator is decoded as JSON.
type Extractor struct {
	Marker     string
	Terminator string
}

// DefaultExtractor matches pages that declare `var transaction = {...};`.
var DefaultExtractor = Extractor{Marker: "var transaction =", Terminator: ";"}

// Extract decodes the descriptor embedded in script.
func (e Extractor) Extract(link, script string) (*domain.TransactionDescriptor, error) {
	i := strings.Index(script, e.Marker)
	if i < 0 {
		return nil, &domain.ErrResolution{Link: link, Reason: "marker not found"}
	}
	payload := script[i+len(e.Marker):]
	if j := strings.Index(payload, e.Terminator); j >= 0 {
		payload = payload[:j]
	} else {
		return nil, &domain.ErrResolution{Link: link, Reason: "terminator not found"}
	}

	var desc domain.TransactionDescriptor
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &desc); err != nil {
		return nil, &domain.ErrResolution{Link: link, Reason: "malformed descriptor", Err: err}
	}
	return &desc, nil
}
