package extraction

import (
	"context"
	"time"
)

// VendorInfo is what the extractor could read off the invoice header
type VendorInfo struct {
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date,omitempty"`
	Subtotal      string `json:"subtotal,omitempty"`
	TaxAmount     string `json:"tax_amount,omitempty"`
	Total         string `json:"total,omitempty"`
}

// CandidateLine is one extracted invoice row, all values verbatim strings.
// Parsing and validation happen downstream; the extractor never interprets.
type CandidateLine struct {
	LineNumber int      `json:"line_number"`
	Columns    []string `json:"columns"`

	// Best-effort field guesses from the extractor, may be empty
	RawDescription string `json:"raw_description"`
	RawSKU         string `json:"raw_sku,omitempty"`
	RawQuantity    string `json:"raw_quantity,omitempty"`
	RawUnit        string `json:"raw_unit,omitempty"`
	RawWeight      string `json:"raw_weight,omitempty"`
	RawUnitPrice   string `json:"raw_unit_price,omitempty"`
	RawTotal       string `json:"raw_total,omitempty"`
	RawPackSize    string `json:"raw_pack_size,omitempty"`
}

// Result is the extractor's full reading of one document
type Result struct {
	Vendor      VendorInfo      `json:"vendor"`
	Lines       []CandidateLine `json:"lines"`
	ColumnCount int             `json:"column_count"`
	PageCount   int             `json:"page_count"`
	Warnings    []string        `json:"warnings,omitempty"`
	ExtractedAt time.Time       `json:"extracted_at"`
}

// Extractor reads an uploaded invoice document into candidate lines.
// hints is free-form vendor guidance built from the parsing profile; an
// empty string means no profile exists yet.
type Extractor interface {
	Extract(ctx context.Context, document []byte, contentType, hints string) (*Result, error)
}

// HintProvider supplies per-vendor extraction hints, typically cached
type HintProvider interface {
	HintsFor(ctx context.Context, vendorName string) (string, error)
}
