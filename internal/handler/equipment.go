package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/service"
)

// EquipmentService is implemented by *service.EquipmentService.
type EquipmentService interface {
	List(ctx context.Context) ([]*model.Equipment, error)
	Get(ctx context.Context, id uint64) (*model.Equipment, error)
	Create(ctx context.Context, ownerID uint64, in service.EquipmentInput, up *media.Upload) (*model.Equipment, error)
	Update(ctx context.Context, id uint64, patch service.EquipmentPatch, up *media.Upload, removeImage bool) (*model.Equipment, error)
	Delete(ctx context.Context, id uint64) error
}

// Form names the image may arrive under.  Older clients send image_file.
var imageFields = []string{"image", "image_file"}

// EquipmentHandler serves the /equipment resource.
type EquipmentHandler struct {
	Equipment EquipmentService
	Log       *zap.Logger
}

func NewEquipmentHandler(svc EquipmentService, log *zap.Logger) *EquipmentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EquipmentHandler{Equipment: svc, Log: log}
}

// List handles GET /equipment and returns a bare array.
func (h *EquipmentHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Equipment.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Show handles GET /equipment/:id.
func (h *EquipmentHandler) Show(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return respondError(c, h.Log, service.ErrEquipmentNotFound)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Equipment.Get(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Create handles POST /equipment.
func (h *EquipmentHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	f, err := readFields(c, "name", "description", "price", "status")
	if err != nil {
		return badBody(c)
	}
	up, err := readUpload(c, imageFields...)
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Equipment.Create(ctx, uid, service.EquipmentInput{
		Name:        f.get("name"),
		Description: f.get("description"),
		Price:       f.get("price"),
		Status:      f.get("status"),
	}, up)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Equipment created successfully", "data": e})
}

// Update handles PUT/PATCH /equipment/:id.  A truthy remove_image clears
// the image when no new file is sent.
func (h *EquipmentHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return respondError(c, h.Log, service.ErrEquipmentNotFound)
	}
	f, err := readFields(c, "name", "description", "price", "status", "remove_image")
	if err != nil {
		return badBody(c)
	}
	up, err := readUpload(c, imageFields...)
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e, err := h.Equipment.Update(ctx, id, service.EquipmentPatch{
		Name:        f.ptr("name"),
		Description: f.ptr("description"),
		Price:       f.ptr("price"),
		Status:      f.ptr("status"),
	}, up, f.truthy("remove_image"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Equipment updated successfully", "data": e})
}

// Destroy handles DELETE /equipment/:id.
func (h *EquipmentHandler) Destroy(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return respondError(c, h.Log, service.ErrEquipmentNotFound)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	err := h.Equipment.Delete(ctx, id)
	if errors.Is(err, service.ErrConflict) {
		return message(c, http.StatusConflict, "Equipment cannot be deleted while orders reference it.")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
