package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
type PurchaseOrderModel struct {
	AggregateModel
	OrderDate       time.Time                 `gorm:"not null;index"`
	SupplierID      *uuid.UUID                `gorm:"type:uuid;index"`
	SupplierName    string                    `gorm:"type:varchar(200);not null"`
	ReferenceNumber string                    `gorm:"type:varchar(100);index"`
	TotalAmount     decimal.Decimal           `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentMethod   string                    `gorm:"type:varchar(50)"`
	Status          trade.PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'ordered';index"`
	Notes           string                    `gorm:"type:text"`
	ExpiryDate      *time.Time                `gorm:"type:date"`
	Items           []PurchaseOrderItemModel  `gorm:"foreignKey:PurchaseOrderID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) ToDomain() *trade.PurchaseOrder {
	order := &trade.PurchaseOrder{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderDate:         m.OrderDate,
		SupplierID:        m.SupplierID,
		SupplierName:      m.SupplierName,
		ReferenceNumber:   m.ReferenceNumber,
		TotalAmount:       m.TotalAmount,
		PaymentMethod:     m.PaymentMethod,
		Status:            m.Status,
		Notes:             m.Notes,
		ExpiryDate:        m.ExpiryDate,
		Items:             make([]trade.PurchaseOrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		order.Items[i] = *item.ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) FromDomain(o *trade.PurchaseOrder) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderDate = o.OrderDate
	m.SupplierID = o.SupplierID
	m.SupplierName = o.SupplierName
	m.ReferenceNumber = o.ReferenceNumber
	m.TotalAmount = o.TotalAmount
	m.PaymentMethod = o.PaymentMethod
	m.Status = o.Status
	m.Notes = o.Notes
	m.ExpiryDate = o.ExpiryDate
	m.Items = make([]PurchaseOrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = *PurchaseOrderItemModelFromDomain(&o.Items[i])
	}
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder entity.
func PurchaseOrderModelFromDomain(o *trade.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}

// PurchaseOrderItemModel is the persistence model for the PurchaseOrderItem entity.
type PurchaseOrderItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo           int             `gorm:"not null;default:0"`
	SKU              string          `gorm:"column:sku;type:varchar(100);not null;index"`
	ProductName      string          `gorm:"type:varchar(255);not null"`
	Quantity         int             `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityReceived *int
	BatchNumber      string     `gorm:"type:varchar(100)"`
	ExpiryDate       *time.Time `gorm:"type:date"`
	Notes            string     `gorm:"type:text"`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItemModel) TableName() string {
	return "purchase_order_items"
}

// ToDomain converts the persistence model to a domain PurchaseOrderItem entity.
func (m *PurchaseOrderItemModel) ToDomain() *trade.PurchaseOrderItem {
	return &trade.PurchaseOrderItem{
		ID:               m.ID,
		PurchaseOrderID:  m.PurchaseOrderID,
		LineNo:           m.LineNo,
		SKU:              m.SKU,
		ProductName:      m.ProductName,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		TotalPrice:       m.TotalPrice,
		QuantityReceived: m.QuantityReceived,
		BatchNumber:      m.BatchNumber,
		ExpiryDate:       m.ExpiryDate,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// PurchaseOrderItemModelFromDomain creates a new persistence model from a domain PurchaseOrderItem entity.
func PurchaseOrderItemModelFromDomain(i *trade.PurchaseOrderItem) *PurchaseOrderItemModel {
	return &PurchaseOrderItemModel{
		ID:               i.ID,
		PurchaseOrderID:  i.PurchaseOrderID,
		LineNo:           i.LineNo,
		SKU:              i.SKU,
		ProductName:      i.ProductName,
		Quantity:         i.Quantity,
		UnitPrice:        i.UnitPrice,
		TotalPrice:       i.TotalPrice,
		QuantityReceived: i.QuantityReceived,
		BatchNumber:      i.BatchNumber,
		ExpiryDate:       i.ExpiryDate,
		Notes:            i.Notes,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}
