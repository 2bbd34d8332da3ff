// File: internal/inventory/model.go
package inventory

import (
	"repairdesk_backend/internal/common"
)

// ItemCondition describes the physical condition of a stock item.
type ItemCondition string

const (
	ConditionNew         ItemCondition = "new"
	ConditionUsed        ItemCondition = "used"
	ConditionRefurbished ItemCondition = "refurbished"
	ConditionDefective   ItemCondition = "defective"
	ConditionScrap       ItemCondition = "scrap"
)

// ValidCondition reports whether c is one of the known conditions.
func ValidCondition(c ItemCondition) bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionRefurbished, ConditionDefective, ConditionScrap:
		return true
	}
	return false
}

// Item is one stock line in the workshop's parts inventory.
type Item struct {
	common.BaseModel
	Name          string        `gorm:"type:varchar(150);not null" json:"name"`
	Category      string        `gorm:"type:varchar(100);not null" json:"category"`
	SKU           *string       `gorm:"type:varchar(100);uniqueIndex" json:"sku,omitempty"`
	Quantity      int           `gorm:"not null;default:0" json:"quantity"`
	CriticalLevel int           `gorm:"not null;default:0" json:"critical_level"`
	BuyPrice      float64       `gorm:"type:decimal(12,2);not null;default:0" json:"buy_price"`
	SellPrice     float64       `gorm:"type:decimal(12,2);not null;default:0" json:"sell_price"`
	ShelfLocation *string       `gorm:"type:varchar(100)" json:"shelf_location,omitempty"`
	Condition     ItemCondition `gorm:"type:varchar(20);not null;default:'new'" json:"status"`
	Notes         *string       `gorm:"type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for GORM.
func (Item) TableName() string {
	return "inventory"
}

// IsCritical reports whether the stock level dropped to the alert line.
func (i *Item) IsCritical() bool {
	return i.CriticalLevel > 0 && i.Quantity <= i.CriticalLevel
}

// --- DTOs for API requests ---

// CreateItemRequest adds a new stock line.
type CreateItemRequest struct {
	Name          string        `json:"name" binding:"required,max=150"`
	Category      string        `json:"category" binding:"required,max=100"`
	SKU           *string       `json:"sku" binding:"omitempty,max=100"`
	Quantity      int           `json:"quantity" binding:"gte=0"`
	CriticalLevel int           `json:"critical_level" binding:"gte=0"`
	BuyPrice      float64       `json:"buy_price" binding:"gte=0"`
	SellPrice     float64       `json:"sell_price" binding:"gte=0"`
	ShelfLocation *string       `json:"shelf_location" binding:"omitempty,max=100"`
	Condition     ItemCondition `json:"status" binding:"omitempty,oneof=new used refurbished defective scrap"`
	Notes         *string       `json:"notes"`
}

// UpdateItemRequest partially updates a stock line.
type UpdateItemRequest struct {
	Name          *string        `json:"name" binding:"omitempty,max=150"`
	Category      *string        `json:"category" binding:"omitempty,max=100"`
	SKU           *string        `json:"sku" binding:"omitempty,max=100"`
	Quantity      *int           `json:"quantity" binding:"omitempty,gte=0"`
	CriticalLevel *int           `json:"critical_level" binding:"omitempty,gte=0"`
	BuyPrice      *float64       `json:"buy_price" binding:"omitempty,gte=0"`
	SellPrice     *float64       `json:"sell_price" binding:"omitempty,gte=0"`
	ShelfLocation *string        `json:"shelf_location" binding:"omitempty,max=100"`
	Condition     *ItemCondition `json:"status" binding:"omitempty,oneof=new used refurbished defective scrap"`
	Notes         *string        `json:"notes"`
}
