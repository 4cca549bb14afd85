// ABOUTME: This file defines bulk price update inputs and per-row outcome records
// ABOUTME: Prices are normalised to integer strings before transmission upstream

package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BulkPriceItem is one requested price change. Price accepts either a JSON
// number or a numeric string with an optional decimal part.
type BulkPriceItem struct {
	ProductCode string `json:"product_code"`
	Price       string `json:"price"`
}

// UnmarshalJSON accepts {"price": 13500} and {"price": "13500.00"} alike.
func (b *BulkPriceItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductCode string      `json:"product_code"`
		Price       json.Number `json:"price"`
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	b.ProductCode = raw.ProductCode
	b.Price = raw.Price.String()
	return nil
}

// NormalizePrice converts a numeric price string to the integer string the
// upstream expects, flooring any decimal part.
func NormalizePrice(price string) (string, error) {
	s := strings.TrimSpace(price)
	if s == "" {
		return "", fmt.Errorf("empty price")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("invalid price %q: %w", s, err)
	}
	// ParseFloat accepts "NaN" and "Inf"; neither is a price.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("invalid price %q", s)
	}
	if f < 0 {
		return "", fmt.Errorf("negative price %q", s)
	}
	return strconv.FormatInt(int64(f), 10), nil
}

// BulkOutcomeStatus classifies one bulk item result.
type BulkOutcomeStatus string

const (
	BulkOK             BulkOutcomeStatus = "ok"
	BulkNotFound       BulkOutcomeStatus = "not_found"
	BulkRejected       BulkOutcomeStatus = "rejected"
	BulkTransportError BulkOutcomeStatus = "transport_error"
)

// BulkUpdateOutcome is the result for one input item. Outcomes are returned in
// input order.
type BulkUpdateOutcome struct {
	ProductCode    string            `json:"product_code"`
	RequestedPrice string            `json:"requested_price"`
	Status         BulkOutcomeStatus `json:"status"`
	Detail         string            `json:"detail,omitempty"`
}

// BulkApplyResult aggregates a whole bulk run. Execution is best-effort: one
// failed item never aborts the rest.
type BulkApplyResult struct {
	JobID       string              `json:"job_id"`
	Total       int                 `json:"total"`
	OKCount     int                 `json:"ok_count"`
	FailedCount int                 `json:"failed_count"`
	Outcomes    []BulkUpdateOutcome `json:"outcomes"`
}

// CSVImportError is one failed row from a template import.
type CSVImportError struct {
	Row         int    `json:"row"`
	ProductCode string `json:"product_code,omitempty"`
	Detail      string `json:"detail"`
}

// CSVImportSummary aggregates a template import. Errors are capped at the
// first MaxCSVImportErrors failures.
type CSVImportSummary struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Failed  int              `json:"failed"`
	Errors  []CSVImportError `json:"errors"`
}

// MaxCSVImportErrors caps the error list in an import summary.
const MaxCSVImportErrors = 10
