package csvimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Purchase order item template columns, in file order
const (
	ColProductName = "product_name"
	ColUnitPrice   = "unit_price"
)

// PurchaseOrderItemColumns is the fixed item template header
var PurchaseOrderItemColumns = []string{
	ColSKU, ColProductName, ColQuantity, ColUnitPrice, ColBatchNumber, ColExpiryDate, ColNotes,
}

var purchaseOrderItemRequired = []string{ColSKU, ColProductName, ColQuantity, ColUnitPrice}

// templateSheet is the worksheet name used for XLSX templates
const templateSheet = "Items"

// PurchaseOrderItemRow is a decoded item line ready to become an order item
type PurchaseOrderItemRow struct {
	Row         int             `json:"row"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	BatchNumber string          `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// PurchaseOrderItemParseResult holds the decoded rows and the rows that were rejected
type PurchaseOrderItemParseResult struct {
	Items       []PurchaseOrderItemRow `json:"items"`
	Errors      []RowError             `json:"errors"`
	TotalErrors int                    `json:"total_errors"`
	Truncated   bool                   `json:"truncated"`
}

// PurchaseOrderItemTemplate reads and renders the purchase order item layout
type PurchaseOrderItemTemplate struct {
	MaxRows   int
	MaxErrors int
}

// NewPurchaseOrderItemTemplate creates a template codec
func NewPurchaseOrderItemTemplate(maxRows int) *PurchaseOrderItemTemplate {
	return &PurchaseOrderItemTemplate{MaxRows: maxRows, MaxErrors: 100}
}

// Parse decodes an uploaded item list. Rows with errors are left out of Items.
func (t *PurchaseOrderItemTemplate) Parse(r io.Reader) (*PurchaseOrderItemParseResult, error) {
	parser, err := NewCSVParser(r)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.MissingHeaders(purchaseOrderItemRequired); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	rows, err := parser.ReadAllRows(t.MaxRows)
	if err != nil {
		return nil, err
	}

	errs := NewErrorCollection(t.MaxErrors)
	items := make([]PurchaseOrderItemRow, 0, len(rows))
	for _, row := range rows {
		if item, ok := decodeItemRow(row, errs); ok {
			items = append(items, item)
		}
	}

	return &PurchaseOrderItemParseResult{
		Items:       items,
		Errors:      errs.Errors(),
		TotalErrors: errs.TotalCount(),
		Truncated:   errs.IsTruncated(),
	}, nil
}

func decodeItemRow(row *Row, errs *ErrorCollection) (PurchaseOrderItemRow, bool) {
	before := errs.TotalCount()
	item := PurchaseOrderItemRow{
		Row:         row.LineNumber,
		SKU:         row.Get(ColSKU),
		ProductName: row.Get(ColProductName),
		BatchNumber: row.Get(ColBatchNumber),
		Notes:       row.Get(ColNotes),
	}

	if item.SKU == "" {
		errs.AddRequiredError(row.LineNumber, ColSKU)
	}
	if item.ProductName == "" {
		errs.AddRequiredError(row.LineNumber, ColProductName)
	}

	if raw := row.Get(ColQuantity); raw == "" {
		errs.AddRequiredError(row.LineNumber, ColQuantity)
	} else if qty, err := strconv.Atoi(raw); err != nil || qty <= 0 {
		errs.Add(NewRowErrorWithValue(row.LineNumber, ColQuantity, ErrCodeInvalidQty,
			"quantity must be a positive whole number", raw))
	} else {
		item.Quantity = qty
	}

	if raw := row.Get(ColUnitPrice); raw == "" {
		errs.AddRequiredError(row.LineNumber, ColUnitPrice)
	} else if price, err := decimal.NewFromString(raw); err != nil || price.IsNegative() {
		errs.Add(NewRowErrorWithValue(row.LineNumber, ColUnitPrice, ErrCodeInvalidPrice,
			"unit price must be a number of zero or more", raw))
	} else {
		item.UnitPrice = price
	}

	if raw := row.Get(ColExpiryDate); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			errs.Add(NewRowErrorWithValue(row.LineNumber, ColExpiryDate, ErrCodeInvalidDate, err.Error(), raw))
		} else {
			item.ExpiryDate = &d
		}
	}

	return item, errs.TotalCount() == before
}

// WriteCSV renders the blank template with one example line
func (t *PurchaseOrderItemTemplate) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PurchaseOrderItemColumns); err != nil {
		return err
	}
	if err := cw.Write(templateExample()); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders the blank template as a workbook
func (t *PurchaseOrderItemTemplate) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return fmt.Errorf("failed to name template sheet: %w", err)
	}
	for i, values := range [][]string{PurchaseOrderItemColumns, templateExample()} {
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(templateSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write template cell %s: %w", cell, err)
			}
		}
	}
	if err := f.SetColWidth(templateSheet, "A", "G", 18); err != nil {
		return err
	}
	if err := f.SetPanes(templateSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}
	return f.Write(w)
}

// TemplateBytes renders the template in the requested format ("csv" or "xlsx")
func (t *PurchaseOrderItemTemplate) TemplateBytes(format string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "", "csv":
		if err := t.WriteCSV(&buf); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv; charset=utf-8", nil
	case "xlsx":
		if err := t.WriteXLSX(&buf); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	default:
		return nil, "", fmt.Errorf("unsupported template format %q", format)
	}
}

func templateExample() []string {
	return []string{"SKU-001", "Example product", "10", "2.50", "B1", "31/12/2026", ""}
}
