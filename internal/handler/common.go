package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/middleware"
	"github.com/iliyamo/equipment-rental/internal/service"
)

const requestTimeout = 5 * time.Second

var errNoUser = errors.New("invalid user_id in context")

// getUserID returns the id TokenAuth stored for the caller.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errNoUser
	}
	return id, nil
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fields holds the request values a handler accepts.  A key is present only
// when the client sent it, which is how partial updates tell "absent" from
// "empty".
type fields map[string]string

// readFields collects the allow-listed names from a JSON, urlencoded or
// multipart body.  Anything else the client sent is ignored.
func readFields(c echo.Context, allowed ...string) (fields, error) {
	out := fields{}
	req := c.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		raw := map[string]any{}
		dec := json.NewDecoder(req.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		for _, name := range allowed {
			if v, ok := raw[name]; ok {
				out[name] = stringify(v)
			}
		}
		return out, nil
	}

	form, err := c.FormParams()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	for _, name := range allowed {
		if vals, ok := form[name]; ok && len(vals) > 0 {
			out[name] = vals[0]
		}
	}
	return out, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func (f fields) get(name string) string { return f[name] }

// ptr returns a pointer to the value or nil when name was not sent.
func (f fields) ptr(name string) *string {
	v, ok := f[name]
	if !ok {
		return nil
	}
	return &v
}

// truthy follows the usual form conventions for boolean flags.
func (f fields) truthy(name string) bool {
	switch strings.ToLower(strings.TrimSpace(f[name])) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// readUpload returns the first file found under names, or nil.
func readUpload(c echo.Context, names ...string) (*media.Upload, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	for _, name := range names {
		fh, err := c.FormFile(name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &media.Upload{
			Filename: fh.Filename,
			Size:     fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}, nil
	}
	return nil, nil
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}

func badBody(c echo.Context) error {
	return message(c, http.StatusBadRequest, "Malformed request body.")
}

// respondError maps service errors onto the shared HTTP taxonomy.
// Handlers with endpoint specific wording check those errors first.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"message": "The given data was invalid.",
			"errors":  ve.Fields,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		return message(c, http.StatusUnauthorized, "The provided credentials do not match our records.")
	case errors.Is(err, service.ErrUnauthenticated):
		return message(c, http.StatusUnauthorized, "Unauthenticated.")
	case errors.Is(err, service.ErrUserNotFound):
		return message(c, http.StatusNotFound, "User not found.")
	case errors.Is(err, service.ErrEquipmentNotFound):
		return message(c, http.StatusNotFound, "Equipment not found.")
	case errors.Is(err, service.ErrInvalidOTP):
		return message(c, http.StatusBadRequest, "Invalid or expired code.")
	case errors.Is(err, service.ErrOTPMismatch):
		return message(c, http.StatusUnauthorized, "Invalid OTP provided.")
	case errors.Is(err, service.ErrConflict):
		return message(c, http.StatusConflict, "The resource is still referenced by other records.")
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("request timed out", zap.String("path", c.Path()), zap.Error(err))
		return message(c, http.StatusServiceUnavailable, "The request timed out.")
	}
	log.Error("request failed", zap.String("method", c.Request().Method), zap.String("path", c.Path()), zap.Error(err))
	return message(c, http.StatusInternalServerError, "Server Error")
}
