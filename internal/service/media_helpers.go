package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/media"
)

// checkUpload validates an optional upload under the "image" field.
func checkUpload(ve *ValidationError, store MediaStore, up *media.Upload, maxKB int64) {
	if up == nil {
		return
	}
	switch err := store.Validate(*up); {
	case err == nil:
	case errors.Is(err, media.ErrTooLarge):
		ve.Add("image", fmt.Sprintf("The image field must not be greater than %d kilobytes.", maxKB))
	case errors.Is(err, media.ErrUnsupportedType):
		ve.Add("image", "The image field must be a file of type: jpeg, png, jpg, gif, svg.")
	default:
		ve.Add("image", "The image failed to upload.")
	}
}

// removeFile deletes ref and only logs failures.
func removeFile(ctx context.Context, store MediaStore, log *zap.Logger, ref string) {
	if ref == "" {
		return
	}
	if err := store.Delete(ctx, ref); err != nil {
		log.Warn("media: delete failed", zap.String("ref", ref), zap.Error(err))
	}
}

func urlFor(store MediaStore, ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	u := store.URL(*ref)
	if u == "" {
		return nil
	}
	return &u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
