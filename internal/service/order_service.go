package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/queue"
	"github.com/iliyamo/equipment-rental/internal/repository"
)

// OrderInput is the payload of POST /orders.  Both values arrive as text.
type OrderInput struct {
	EquipmentID string `json:"equipment_id" validate:"required,numeric"`
	TotalPrice  string `json:"total_price" validate:"required,numeric"`
}

// OrderService places and lists customer orders.
type OrderService struct {
	orders    OrderStore
	equipment EquipmentStore
	media     MediaStore
	events    OrderEvents
	log       *zap.Logger
}

// NewOrderService wires the service.  events may be nil when no broker is
// configured.
func NewOrderService(orders OrderStore, equipment EquipmentStore, store MediaStore, events OrderEvents, log *zap.Logger) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{orders: orders, equipment: equipment, media: store, events: events, log: log}
}

// ListMine returns the user's orders, newest first, with equipment attached.
func (s *OrderService) ListMine(ctx context.Context, userID uint64) ([]*model.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.Equipment != nil {
			o.Equipment.ImageURL = urlFor(s.media, o.Equipment.Image)
		}
	}
	return orders, nil
}

// Create records a pending order of quantity 1 and announces it.
func (s *OrderService) Create(ctx context.Context, userID uint64, in OrderInput) (*model.Order, error) {
	in.EquipmentID = strings.TrimSpace(in.EquipmentID)
	in.TotalPrice = strings.TrimSpace(in.TotalPrice)

	ve := newValidationError()
	checkStruct(ve, in)

	var equipment *model.Equipment
	if !ve.Has("equipment_id") {
		id, err := strconv.ParseUint(in.EquipmentID, 10, 64)
		if err != nil {
			ve.Add("equipment_id", invalidSelection("equipment_id"))
		} else {
			equipment, err = s.equipment.GetByID(ctx, id)
			switch {
			case errors.Is(err, repository.ErrEquipmentNotFound):
				ve.Add("equipment_id", invalidSelection("equipment_id"))
			case err != nil:
				return nil, err
			}
		}
	}
	var total decimal.Decimal
	if !ve.Has("total_price") {
		d, err := decimal.NewFromString(in.TotalPrice)
		switch {
		case err != nil:
			ve.Add("total_price", message("total_price", "numeric", ""))
		case d.IsNegative():
			ve.Add("total_price", "The total price field must be at least 0.")
		}
		total = d.Round(2)
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	o := &model.Order{
		UserID:      userID,
		EquipmentID: equipment.ID,
		Quantity:    1,
		TotalPrice:  total,
		Status:      model.OrderPending,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fieldError("equipment_id", invalidSelection("equipment_id"))
		}
		return nil, err
	}

	if s.events != nil {
		ev := queue.OrderPlacedEvent{
			OrderID:       o.ID,
			UserID:        o.UserID,
			EquipmentID:   o.EquipmentID,
			EquipmentName: equipment.Name,
			Quantity:      o.Quantity,
			TotalPrice:    o.TotalPrice.StringFixed(2),
			Status:        o.Status,
		}
		if err := s.events.PublishOrderPlaced(ctx, ev); err != nil {
			s.log.Warn("order event publish failed", zap.Uint64("order_id", o.ID), zap.Error(err))
		}
	}
	return o, nil
}
