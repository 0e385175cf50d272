package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPending is the status every new order starts in.
const OrderPending = "pending"

// Order records a customer's request to rent one equipment item.  Orders are
// immutable once placed.  Equipment is populated by listings that join the
// referenced item.
type Order struct {
	ID          uint64          `json:"id"`
	UserID      uint64          `json:"user_id"`
	EquipmentID uint64          `json:"equipment_id"`
	Quantity    uint32          `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Equipment   *Equipment      `json:"equipment,omitempty"`
}
