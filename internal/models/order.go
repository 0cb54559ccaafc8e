// internal/models/order.go
package models

import (
	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	CustomerEmail    string          `json:"customer_email" gorm:"size:254;not null;index"`
	ProductID        uint            `json:"product_id" gorm:"not null;index"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	GatewayOrderID   string          `json:"gateway_order_id" gorm:"size:200;uniqueIndex;not null"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty" gorm:"size:200"`
	HasPaid          bool            `json:"has_paid" gorm:"not null;default:false"`
	Status           OrderStatus     `json:"status" gorm:"type:varchar(10);not null;default:'PENDING';index"`
	// Receipt is the content-store path of the generated PDF.
	Receipt string `json:"receipt,omitempty" gorm:"size:255"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (o *Order) HasReceipt() bool {
	return o.Receipt != ""
}
