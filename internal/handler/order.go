package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/service"
)

// OrderService is implemented by *service.OrderService.
type OrderService interface {
	ListMine(ctx context.Context, userID uint64) ([]*model.Order, error)
	Create(ctx context.Context, userID uint64, in service.OrderInput) (*model.Order, error)
}

// OrderHandler serves the caller's orders.
type OrderHandler struct {
	Orders OrderService
	Log    *zap.Logger
}

func NewOrderHandler(svc OrderService, log *zap.Logger) *OrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHandler{Orders: svc, Log: log}
}

// ListMine handles GET /my-orders.
func (h *OrderHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	orders, err := h.Orders.ListMine(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": orders})
}

// Create handles POST /orders and POST /my-orders.
func (h *OrderHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	f, err := readFields(c, "equipment_id", "total_price")
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.Create(ctx, uid, service.OrderInput{
		EquipmentID: f.get("equipment_id"),
		TotalPrice:  f.get("total_price"),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "Order placed!", "data": o})
}
