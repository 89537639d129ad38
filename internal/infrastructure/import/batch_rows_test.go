package csvimport

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecodeBatchRows(t *testing.T) {
	input := "SKU,Expiry Date,Quantity,Batch Number,Notes\n" +
		"MILK-1,31/12/2025,5,B9,first\n" +
		"MILK-1,31/12/2025,3,B9,\n"

	rows, err := DecodeBatchRows(strings.NewReader(input), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, BatchRow{Row: 2, SKU: "MILK-1", ExpiryDate: "31/12/2025", Quantity: "5", BatchNumber: "B9", Notes: "first"}, rows[0])
	assert.Equal(t, 3, rows[1].Row)
}

func TestDecodeBatchRows_OptionalColumnsMayBeAbsent(t *testing.T) {
	rows, err := DecodeBatchRows(strings.NewReader("sku,expiry_date,quantity\nA,2025-01-01,1\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, "", rows[0].BatchNumber)
}

func TestDecodeBatchRows_MissingColumns(t *testing.T) {
	_, err := DecodeBatchRows(strings.NewReader("SKU,Notes\nA,x\n"), 0)
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{ColExpiryDate, ColQuantity}, missing.Columns)
	assert.True(t, IsFileError(err))
}

func TestIsFileError(t *testing.T) {
	assert.True(t, IsFileError(ErrNoDataRows))
	assert.False(t, IsFileError(assert.AnError))
}

func TestPurchaseOrderItemTemplate_Parse(t *testing.T) {
	input := "sku,product_name,quantity,unit_price,batch_number,expiry_date,notes\n" +
		"A,Apple,2,10.00,B1,31/12/2025,\n" +
		"B,Banana,0,1.00,,,\n" +
		",Cherry,1,-1,,bad-date,\n" +
		"C,Carrot,4,0.5,,,fresh\n"

	res, err := NewPurchaseOrderItemTemplate(0).Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	first := res.Items[0]
	assert.Equal(t, "A", first.SKU)
	assert.Equal(t, 2, first.Quantity)
	assert.True(t, decimal.RequireFromString("10").Equal(first.UnitPrice))
	require.NotNil(t, first.ExpiryDate)
	assert.True(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC).Equal(*first.ExpiryDate))
	assert.Equal(t, "fresh", res.Items[1].Notes)

	codes := map[string]int{}
	for _, e := range res.Errors {
		codes[e.Code]++
	}
	assert.Equal(t, 1, codes[ErrCodeInvalidQty])
	assert.Equal(t, 1, codes[ErrCodeRequiredField])
	assert.Equal(t, 1, codes[ErrCodeInvalidPrice])
	assert.Equal(t, 1, codes[ErrCodeInvalidDate])
	assert.Equal(t, 4, res.TotalErrors)
	assert.False(t, res.Truncated)
}

func TestPurchaseOrderItemTemplate_WriteCSVRoundTrip(t *testing.T) {
	tpl := NewPurchaseOrderItemTemplate(0)
	var buf bytes.Buffer
	require.NoError(t, tpl.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "sku,product_name,quantity,unit_price,batch_number,expiry_date,notes\n"))

	res, err := tpl.Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Empty(t, res.Errors)
}

func TestPurchaseOrderItemTemplate_WriteXLSX(t *testing.T) {
	data, contentType, err := NewPurchaseOrderItemTemplate(0).TemplateBytes("xlsx")
	require.NoError(t, err)
	assert.Contains(t, contentType, "spreadsheetml")

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(templateSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, PurchaseOrderItemColumns, rows[0])
}

func TestPurchaseOrderItemTemplate_UnknownFormat(t *testing.T) {
	_, _, err := NewPurchaseOrderItemTemplate(0).TemplateBytes("pdf")
	assert.Error(t, err)
}
