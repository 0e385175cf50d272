// Package queue defines the messages exchanged over RabbitMQ together with
// the publisher and the background consumers that process them.
package queue

// Queue names.  Both are declared durable by publishers and consumers alike.
const (
	MailQueue  = "mail.otp"
	OrderQueue = "order.placed"
)

// OTP mail kinds.
const (
	MailVerification  = "verification"
	MailPasswordReset = "password_reset"
)

// OTPMailEvent asks the mail consumer to deliver a one-time code.
type OTPMailEvent struct {
	Kind        string `json:"kind"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	OTP         string `json:"otp"`
	RequestedAt string `json:"requested_at"`
}

// OrderPlacedEvent is published after an order row has been committed.  It
// carries enough to log the order without querying the database.
type OrderPlacedEvent struct {
	OrderID       uint64 `json:"order_id"`
	UserID        uint64 `json:"user_id"`
	EquipmentID   uint64 `json:"equipment_id"`
	EquipmentName string `json:"equipment_name"`
	Quantity      uint32 `json:"quantity"`
	TotalPrice    string `json:"total_price"`
	Status        string `json:"status"`
	PlacedAt      string `json:"placed_at"`
}
