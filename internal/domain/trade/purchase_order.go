package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the status of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusOrdered           PurchaseOrderStatus = "ordered"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
)

// ParsePurchaseOrderStatus converts a raw string into a PurchaseOrderStatus
func ParsePurchaseOrderStatus(s string) (PurchaseOrderStatus, error) {
	status := PurchaseOrderStatus(strings.TrimSpace(s))
	if !status.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Unknown purchase order status %q (expected ordered, partially_received or received)", s))
	}
	return status, nil
}

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusOrdered, PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived:
		return true
	}
	return false
}

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	switch s {
	case PurchaseOrderStatusOrdered:
		return target == PurchaseOrderStatusPartiallyReceived || target == PurchaseOrderStatusReceived
	case PurchaseOrderStatusPartiallyReceived:
		return target == PurchaseOrderStatusReceived
	case PurchaseOrderStatusReceived:
		return false // Terminal state
	}
	return false
}

// CanEditItems returns true if the item list may still be replaced
func (s PurchaseOrderStatus) CanEditItems() bool {
	return s == PurchaseOrderStatusOrdered
}

// StatusChange describes a status transition applied to an order
type StatusChange struct {
	From PurchaseOrderStatus
	To   PurchaseOrderStatus
}

// Changed reports whether the order actually moved to a different status
func (c StatusChange) Changed() bool {
	return c.From != c.To
}

// BringsStockIn reports whether the change receives goods into stock
func (c StatusChange) BringsStockIn() bool {
	return c.Changed() && (c.To == PurchaseOrderStatusPartiallyReceived || c.To == PurchaseOrderStatusReceived)
}

// ReceiptQuantity returns how many units of item the change brings into stock.
// previouslyReceived is the quantity already counted by an earlier partial receipt.
func (c StatusChange) ReceiptQuantity(item PurchaseOrderItem, previouslyReceived int) int {
	switch {
	case c.From == PurchaseOrderStatusOrdered && c.To == PurchaseOrderStatusPartiallyReceived:
		return item.ReceivedOrZero()
	case c.From == PurchaseOrderStatusOrdered && c.To == PurchaseOrderStatusReceived:
		return item.Quantity
	case c.From == PurchaseOrderStatusPartiallyReceived && c.To == PurchaseOrderStatusReceived:
		remaining := item.Quantity - previouslyReceived
		if remaining < 0 {
			return 0
		}
		return remaining
	}
	return 0
}

// ItemKey identifies an item for expiry-batch matching. Several lines may share
// a key; receipts are tracked per line number instead.
type ItemKey struct {
	SKU         string
	BatchNumber string
}

// PurchaseOrderItem represents a line item in a purchase order
type PurchaseOrderItem struct {
	ID               uuid.UUID
	PurchaseOrderID  uuid.UUID
	LineNo           int // 1-based position in the order
	SKU              string
	ProductName      string
	Quantity         int
	UnitPrice        decimal.Decimal
	TotalPrice       decimal.Decimal // Quantity * UnitPrice
	QuantityReceived *int
	BatchNumber      string
	ExpiryDate       *time.Time
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewPurchaseOrderItem creates a new purchase order item
func NewPurchaseOrderItem(orderID uuid.UUID, sku, productName string, quantity int, unitPrice decimal.Decimal) (*PurchaseOrderItem, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if strings.TrimSpace(productName) == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", fmt.Sprintf("Product name cannot be empty for SKU %s", sku))
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("Quantity must be positive for SKU %s", sku))
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", fmt.Sprintf("Unit price cannot be negative for SKU %s", sku))
	}

	now := time.Now().UTC()
	return &PurchaseOrderItem{
		ID:              uuid.New(),
		PurchaseOrderID: orderID,
		SKU:             sku,
		ProductName:     strings.TrimSpace(productName),
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		TotalPrice:      decimal.NewFromInt(int64(quantity)).Mul(unitPrice),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SetQuantityReceived records how many units have arrived so far
func (i *PurchaseOrderItem) SetQuantityReceived(received int) error {
	if received < 0 || received > i.Quantity {
		return shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Received quantity for SKU %s must be between 0 and %d", i.SKU, i.Quantity))
	}
	i.QuantityReceived = &received
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// SetBatch attaches batch tracking information to the item
func (i *PurchaseOrderItem) SetBatch(batchNumber string, expiryDate *time.Time) {
	i.BatchNumber = strings.TrimSpace(batchNumber)
	i.ExpiryDate = expiryDate
	i.UpdatedAt = time.Now().UTC()
}

// HasExpiryBatch returns true if the item carries both a batch number and an expiry date
func (i *PurchaseOrderItem) HasExpiryBatch() bool {
	return i.BatchNumber != "" && i.ExpiryDate != nil
}

// ReceivedOrZero returns the received quantity, or zero when none was recorded
func (i *PurchaseOrderItem) ReceivedOrZero() int {
	if i.QuantityReceived == nil {
		return 0
	}
	return *i.QuantityReceived
}

// Key returns the (sku, batch_number) pair used to match items across updates
func (i *PurchaseOrderItem) Key() ItemKey {
	return ItemKey{SKU: i.SKU, BatchNumber: i.BatchNumber}
}

func (i *PurchaseOrderItem) recalculate() {
	i.TotalPrice = decimal.NewFromInt(int64(i.Quantity)).Mul(i.UnitPrice)
	i.UpdatedAt = time.Now().UTC()
}

// PurchaseOrder represents a purchase order aggregate root
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderDate       time.Time
	SupplierID      *uuid.UUID
	SupplierName    string
	ReferenceNumber string
	TotalAmount     decimal.Decimal // Sum of item total prices
	PaymentMethod   string
	Status          PurchaseOrderStatus
	Notes           string
	ExpiryDate      *time.Time
	Items           []PurchaseOrderItem
}

// NewPurchaseOrder creates a new purchase order in the ordered status
func NewPurchaseOrder(supplierName string, orderDate time.Time) (*PurchaseOrder, error) {
	supplierName = strings.TrimSpace(supplierName)
	if supplierName == "" {
		return nil, shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	return &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderDate:         orderDate,
		SupplierName:      supplierName,
		TotalAmount:       decimal.Zero,
		Status:            PurchaseOrderStatusOrdered,
		Items:             make([]PurchaseOrderItem, 0),
	}, nil
}

// ReplaceItems swaps the whole item set for a new one
func (o *PurchaseOrder) ReplaceItems(items []PurchaseOrderItem) error {
	if !o.Status.CanEditItems() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot replace items of an order in status %s", o.Status))
	}

	replaced := make([]PurchaseOrderItem, len(items))
	for idx, item := range items {
		item.PurchaseOrderID = o.ID
		item.LineNo = idx + 1
		item.recalculate()
		replaced[idx] = item
	}

	o.Items = replaced
	o.recalculateTotals()
	o.touch()
	return nil
}

// TransitionTo moves the order to target. Moving to the current status is a no-op.
func (o *PurchaseOrder) TransitionTo(target PurchaseOrderStatus) (StatusChange, error) {
	change := StatusChange{From: o.Status, To: target}
	if !target.IsValid() {
		return change, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Unknown purchase order status %q", target))
	}
	if !change.Changed() {
		return change, nil
	}
	if !o.Status.CanTransitionTo(target) {
		return change, shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot change purchase order status from %s to %s", o.Status, target))
	}

	o.Status = target
	o.touch()
	return change, nil
}

// SetSupplier sets the supplier reference
func (o *PurchaseOrder) SetSupplier(supplierID *uuid.UUID, supplierName string) error {
	supplierName = strings.TrimSpace(supplierName)
	if supplierName == "" {
		return shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}
	o.SupplierID = supplierID
	o.SupplierName = supplierName
	o.touch()
	return nil
}

// SetOrderDate sets the order date
func (o *PurchaseOrder) SetOrderDate(date time.Time) error {
	if date.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Order date cannot be empty")
	}
	o.OrderDate = date
	o.touch()
	return nil
}

// SetReferenceNumber sets the supplier reference number
func (o *PurchaseOrder) SetReferenceNumber(ref string) {
	o.ReferenceNumber = strings.TrimSpace(ref)
	o.touch()
}

// SetPaymentMethod sets the payment method
func (o *PurchaseOrder) SetPaymentMethod(method string) {
	o.PaymentMethod = strings.TrimSpace(method)
	o.touch()
}

// SetNotes sets the order notes
func (o *PurchaseOrder) SetNotes(notes string) {
	o.Notes = notes
	o.touch()
}

// SetExpiryDate sets the order-level expiry date
func (o *PurchaseOrder) SetExpiryDate(date *time.Time) {
	o.ExpiryDate = date
	o.touch()
}

// ItemCount returns the number of items in the order
func (o *PurchaseOrder) ItemCount() int {
	return len(o.Items)
}

// TotalQuantity returns the total ordered quantity across items
func (o *PurchaseOrder) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// ItemsByKey indexes the items by (sku, batch_number)
func (o *PurchaseOrder) ItemsByKey() map[ItemKey]PurchaseOrderItem {
	byKey := make(map[ItemKey]PurchaseOrderItem, len(o.Items))
	for _, item := range o.Items {
		byKey[item.Key()] = item
	}
	return byKey
}

// ItemsByLine indexes the items by line number
func (o *PurchaseOrder) ItemsByLine() map[int]PurchaseOrderItem {
	byLine := make(map[int]PurchaseOrderItem, len(o.Items))
	for _, item := range o.Items {
		byLine[item.LineNo] = item
	}
	return byLine
}

// recalculateTotals recalculates the total amount from items
func (o *PurchaseOrder) recalculateTotals() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.TotalPrice)
	}
	o.TotalAmount = total
}

func (o *PurchaseOrder) touch() {
	o.Touch()
	o.IncrementVersion()
}
