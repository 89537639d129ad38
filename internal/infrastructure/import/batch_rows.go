package csvimport

import (
	"errors"
	"io"
)

// Batch import columns, normalized
const (
	ColSKU         = "sku"
	ColExpiryDate  = "expiry_date"
	ColQuantity    = "quantity"
	ColBatchNumber = "batch_number"
	ColNotes       = "notes"
)

// BatchImportColumns are the headers of an expiry batch import file in display form
var BatchImportColumns = []string{"SKU", "Expiry Date", "Quantity", "Batch Number", "Notes"}

var batchRequiredColumns = []string{ColSKU, ColExpiryDate, ColQuantity}

// BatchRow is one undecoded batch import row. Values stay raw so the validator
// can report the offending text.
type BatchRow struct {
	Row         int    `json:"row"`
	SKU         string `json:"sku"`
	ExpiryDate  string `json:"expiry_date"`
	Quantity    string `json:"quantity"`
	BatchNumber string `json:"batch_number"`
	Notes       string `json:"notes"`
}

// DecodeBatchRows reads an expiry batch import file. Row numbers count the header as row 1.
func DecodeBatchRows(r io.Reader, maxRows int) ([]BatchRow, error) {
	parser, err := NewCSVParser(r)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.MissingHeaders(batchRequiredColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	rows, err := parser.ReadAllRows(maxRows)
	if err != nil {
		return nil, err
	}

	out := make([]BatchRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, BatchRow{
			Row:         row.LineNumber,
			SKU:         row.Get(ColSKU),
			ExpiryDate:  row.Get(ColExpiryDate),
			Quantity:    row.Get(ColQuantity),
			BatchNumber: row.Get(ColBatchNumber),
			Notes:       row.Get(ColNotes),
		})
	}
	return out, nil
}

// IsFileError reports whether err describes the file as a whole rather than a row
func IsFileError(err error) bool {
	var missing *MissingColumnsError
	return errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrInvalidEncoding) ||
		errors.Is(err, ErrMissingHeader) ||
		errors.Is(err, ErrNoDataRows) ||
		errors.Is(err, ErrTooManyRows) ||
		errors.As(err, &missing)
}

