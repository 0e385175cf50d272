package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/model"
)

const equipmentStatusTag = "oneof=available reserved maintenance"

// EquipmentInput is the create payload.  Price arrives as text so that the
// decimal value is never routed through a float.
type EquipmentInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	Price       string `json:"price" validate:"required,numeric"`
	Status      string `json:"status" validate:"omitempty,oneof=available reserved maintenance"`
}

// EquipmentPatch carries the fields present in an update request.
type EquipmentPatch struct {
	Name        *string
	Description *string
	Price       *string
	Status      *string
}

// EquipmentService implements equipment CRUD and keeps stored images in
// step with the rows that reference them.
type EquipmentService struct {
	repo        EquipmentStore
	media       MediaStore
	maxUploadKB int64
	log         *zap.Logger
}

func NewEquipmentService(repo EquipmentStore, store MediaStore, maxUploadKB int64, log *zap.Logger) *EquipmentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EquipmentService{repo: repo, media: store, maxUploadKB: maxUploadKB, log: log}
}

// List returns all equipment in id order.
func (s *EquipmentService) List(ctx context.Context) ([]*model.Equipment, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range items {
		s.decorate(e)
	}
	return items, nil
}

// Get returns one item or ErrEquipmentNotFound.
func (s *EquipmentService) Get(ctx context.Context, id uint64) (*model.Equipment, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decorate(e), nil
}

// Create validates in and up, stores the image and inserts the row.  When
// the insert fails the stored image is removed again.
func (s *EquipmentService) Create(ctx context.Context, ownerID uint64, in EquipmentInput, up *media.Upload) (*model.Equipment, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Price = strings.TrimSpace(in.Price)
	in.Status = strings.TrimSpace(in.Status)

	ve := newValidationError()
	checkStruct(ve, in)
	price := parsePrice(ve, in.Price)
	checkUpload(ve, s.media, up, s.maxUploadKB)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	desc := in.Description
	e := &model.Equipment{
		Name:        in.Name,
		Description: &desc,
		Price:       price,
		Status:      in.Status,
	}
	if ownerID != 0 {
		e.UserID = &ownerID
	}

	var ref string
	if up != nil {
		var err error
		if ref, err = s.media.Store(ctx, media.EquipmentDir, *up); err != nil {
			return nil, err
		}
		e.Image = &ref
	}
	if err := s.repo.Create(ctx, e); err != nil {
		removeFile(ctx, s.media, s.log, ref)
		return nil, err
	}
	return s.decorate(e), nil
}

// Update applies patch.  A new upload replaces the image; otherwise
// removeImage clears it.  Old files are deleted only after the row has been
// updated.
func (s *EquipmentService) Update(ctx context.Context, id uint64, patch EquipmentPatch, up *media.Upload, removeImage bool) (*model.Equipment, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ve := newValidationError()
	var price decimal.Decimal
	if patch.Name != nil {
		checkVar(ve, "name", strings.TrimSpace(*patch.Name), "required,max=255")
	}
	if patch.Description != nil {
		checkVar(ve, "description", *patch.Description, "required")
	}
	if patch.Price != nil {
		p := strings.TrimSpace(*patch.Price)
		checkVar(ve, "price", p, "required,numeric")
		price = parsePrice(ve, p)
	}
	if patch.Status != nil {
		checkVar(ve, "status", strings.TrimSpace(*patch.Status), "required,"+equipmentStatusTag)
	}
	checkUpload(ve, s.media, up, s.maxUploadKB)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		e.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		d := *patch.Description
		e.Description = &d
	}
	if patch.Price != nil {
		e.Price = price
	}
	if patch.Status != nil {
		e.Status = strings.TrimSpace(*patch.Status)
	}

	oldImage := deref(e.Image)
	var newImage string
	switch {
	case up != nil:
		if newImage, err = s.media.Store(ctx, media.EquipmentDir, *up); err != nil {
			return nil, err
		}
		e.Image = &newImage
	case removeImage:
		e.Image = nil
	default:
		oldImage = ""
	}

	if err := s.repo.Update(ctx, e); err != nil {
		removeFile(ctx, s.media, s.log, newImage)
		return nil, err
	}
	removeFile(ctx, s.media, s.log, oldImage)
	return s.decorate(e), nil
}

// Delete removes the row and then its image.  ErrConflict is returned while
// orders still reference the item.
func (s *EquipmentService) Delete(ctx context.Context, id uint64) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	removeFile(ctx, s.media, s.log, deref(e.Image))
	return nil
}

func (s *EquipmentService) decorate(e *model.Equipment) *model.Equipment {
	e.ImageURL = urlFor(s.media, e.Image)
	return e
}

// parsePrice converts a validated numeric string into a two-place decimal.
// Negative values are rejected.
func parsePrice(ve *ValidationError, raw string) decimal.Decimal {
	if ve.Has("price") {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		ve.Add("price", message("price", "numeric", ""))
		return decimal.Zero
	}
	if d.IsNegative() {
		ve.Add("price", "The price field must be at least 0.")
		return decimal.Zero
	}
	return d.Round(2)
}
