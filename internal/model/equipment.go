package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Equipment states.
const (
	EquipmentAvailable   = "available"
	EquipmentReserved    = "reserved"
	EquipmentMaintenance = "maintenance"
)

// Equipment is a rentable item.  Price is a fixed-point decimal so values
// such as 19.99 survive storage exactly; Image is the relative media
// reference and ImageURL its public form.
type Equipment struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image"`
	ImageURL    *string         `json:"image_url"`
	Status      string          `json:"status"`
	UserID      *uint64         `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
