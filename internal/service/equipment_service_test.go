package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/model"
)

type equipmentFixture struct {
	svc   *EquipmentService
	repo  *memEquipment
	media *media.LocalStorage
}

func newEquipmentFixture(t *testing.T) *equipmentFixture {
	t.Helper()
	f := &equipmentFixture{
		repo:  newMemEquipment(),
		media: media.NewLocalStorage(t.TempDir(), "/storage", "http://localhost:8080", 2048*1024),
	}
	f.svc = NewEquipmentService(f.repo, f.media, 2048, zap.NewNop())
	return f
}

func (f *equipmentFixture) exists(ref string) bool {
	_, err := os.Stat(filepath.Join(f.media.Root, filepath.FromSlash(ref)))
	return err == nil
}

func drill() EquipmentInput {
	return EquipmentInput{Name: "Drill", Description: "Cordless", Price: "19.99"}
}

func TestEquipmentDrillScenario(t *testing.T) {
	f := newEquipmentFixture(t)
	ctx := context.Background()

	e, err := f.svc.Create(ctx, 1, drill(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Image != nil || e.ImageURL != nil {
		t.Fatalf("image should be null, got %v", e.Image)
	}
	if e.Status != model.EquipmentAvailable {
		t.Fatalf("status = %q", e.Status)
	}
	if e.UserID == nil || *e.UserID != 1 {
		t.Fatalf("owner not recorded: %v", e.UserID)
	}

	updated, err := f.svc.Update(ctx, e.ID, EquipmentPatch{}, nil, true)
	if err != nil {
		t.Fatalf("remove_image without image: %v", err)
	}
	if updated.Image != nil {
		t.Fatal("image should stay null")
	}
}

func TestEquipmentPriceRoundTrip(t *testing.T) {
	f := newEquipmentFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, 1, drill(), nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Price.StringFixed(2) != "19.99" {
		t.Fatalf("price = %s", got.Price.StringFixed(2))
	}
	b, _ := got.Price.MarshalJSON()
	if string(b) != `"19.99"` {
		t.Fatalf("json price = %s", b)
	}
}

func TestEquipmentCreateValidation(t *testing.T) {
	f := newEquipmentFixture(t)
	ctx := context.Background()
	cases := map[string]EquipmentInput{
		"name":        {Description: "x", Price: "1"},
		"description": {Name: "x", Price: "1"},
		"price":       {Name: "x", Description: "x", Price: "abc"},
		"status":      {Name: "x", Description: "x", Price: "1", Status: "broken"},
	}
	for field, in := range cases {
		_, err := f.svc.Create(ctx, 1, in, nil)
		var ve *ValidationError
		if !errors.As(err, &ve) || !ve.Has(field) {
			t.Errorf("%s: want validation error, got %v", field, err)
		}
	}

	_, err := f.svc.Create(ctx, 1, EquipmentInput{Name: "x", Description: "x", Price: "-1"}, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Fields["price"][0] != "The price field must be at least 0." {
		t.Fatalf("negative price: %v", err)
	}
	if items, _ := f.svc.List(ctx); len(items) != 0 {
		t.Fatal("invalid input created rows")
	}
}

func TestEquipmentCreateRejectsBadImage(t *testing.T) {
	f := newEquipmentFixture(t)
	_, err := f.svc.Create(context.Background(), 1, drill(), textUpload())
	var ve *ValidationError
	if !errors.As(err, &ve) || !ve.Has("image") {
		t.Fatalf("want image error, got %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(f.media.Root, media.EquipmentDir))
	if len(entries) != 0 {
		t.Fatal("rejected upload left files behind")
	}
}

func TestEquipmentCreateCleansUpOnInsertFailure(t *testing.T) {
	f := newEquipmentFixture(t)
	f.repo.failCreate = errors.New("db down")
	if _, err := f.svc.Create(context.Background(), 1, drill(), pngUpload()); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(filepath.Join(f.media.Root, media.EquipmentDir))
	if len(entries) != 0 {
		t.Fatalf("orphaned files: %v", entries)
	}
}

func TestEquipmentImageLifecycle(t *testing.T) {
	f := newEquipmentFixture(t)
	ctx := context.Background()

	e, err := f.svc.Create(ctx, 1, drill(), pngUpload())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first := *e.Image
	if !f.exists(first) {
		t.Fatal("stored image missing")
	}
	if e.ImageURL == nil || *e.ImageURL != "http://localhost:8080/storage/"+first {
		t.Fatalf("image_url = %v", e.ImageURL)
	}

	e, err = f.svc.Update(ctx, e.ID, EquipmentPatch{Name: ptr("Hammer drill")}, pngUpload(), false)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if f.exists(first) {
		t.Fatal("replaced image not deleted")
	}
	second := *e.Image
	if !f.exists(second) || e.Name != "Hammer drill" {
		t.Fatal("new image or name not applied")
	}

	e, err = f.svc.Update(ctx, e.ID, EquipmentPatch{}, nil, false)
	if err != nil || e.Image == nil || *e.Image != second {
		t.Fatalf("untouched update changed image: %v %v", e.Image, err)
	}

	e, err = f.svc.Update(ctx, e.ID, EquipmentPatch{}, nil, true)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if e.Image != nil || f.exists(second) {
		t.Fatal("remove_image did not clear image")
	}
}

func TestEquipmentDeleteRemovesFile(t *testing.T) {
	f := newEquipmentFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, 1, drill(), pngUpload())
	if err != nil {
		t.Fatal(err)
	}
	ref := *e.Image
	if err := f.svc.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.exists(ref) {
		t.Fatal("image not removed")
	}
	if _, err := f.svc.Get(ctx, e.ID); !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("want ErrEquipmentNotFound, got %v", err)
	}
	if err := f.svc.Delete(ctx, e.ID); !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestEquipmentDeleteReferencedConflicts(t *testing.T) {
	f := newEquipmentFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, 1, drill(), pngUpload())
	if err != nil {
		t.Fatal(err)
	}
	f.repo.referenced[e.ID] = true
	if err := f.svc.Delete(ctx, e.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if !f.exists(*e.Image) {
		t.Fatal("image deleted although the row survived")
	}
}

func TestEquipmentUpdateValidation(t *testing.T) {
	f := newEquipmentFixture(t)
	ctx := context.Background()
	e, _ := f.svc.Create(ctx, 1, drill(), nil)

	_, err := f.svc.Update(ctx, e.ID, EquipmentPatch{Name: ptr(""), Price: ptr("free")}, nil, false)
	var ve *ValidationError
	if !errors.As(err, &ve) || !ve.Has("name") || !ve.Has("price") {
		t.Fatalf("want name and price errors, got %v", err)
	}
	if _, err := f.svc.Update(ctx, 999, EquipmentPatch{}, nil, false); !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("missing item: %v", err)
	}
	got, _ := f.svc.Get(ctx, e.ID)
	if got.Name != "Drill" {
		t.Fatal("failed update changed the row")
	}
}
