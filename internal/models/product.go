// internal/models/product.go
package models

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	SellerID         uint            `json:"seller_id" gorm:"not null;index"`
	Name             string          `json:"name" gorm:"size:100;not null"`
	Description      string          `json:"description" gorm:"size:100"`
	Price            decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	TotalSalesAmount int64           `json:"total_sales_amount" gorm:"not null;default:0"`
	TotalSales       int64           `json:"total_sales" gorm:"not null;default:0"`
	// Image is either an absolute URL or a content-store key.
	Image string `json:"image,omitempty" gorm:"size:500"`

	// Relationships
	Seller *User `json:"seller,omitempty" gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
}

// MinorUnits converts the price to the smallest currency unit (paise, cents).
// Fractions of a minor unit are truncated.
func (p *Product) MinorUnits() int64 {
	return p.Price.Mul(decimal.NewFromInt(100)).IntPart()
}
