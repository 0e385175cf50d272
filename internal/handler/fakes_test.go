package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/middleware"
	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/service"
)

// fakeAuth implements both AuthService and UserService.  Each method
// returns the configured error and records what it was called with.
type fakeAuth struct {
	err     error
	user    *model.User
	session *service.Session

	registered service.RegisterInput
	verified   [2]string
	loggedOut  string
	patch      service.ProfilePatch
	upload     *media.Upload
	deletedID  uint64
}

func (f *fakeAuth) Register(_ context.Context, in service.RegisterInput) (*model.User, error) {
	f.registered = in
	return f.user, f.err
}

func (f *fakeAuth) Login(context.Context, string, string) (*service.Session, error) {
	return f.session, f.err
}

func (f *fakeAuth) Verify(_ context.Context, userID, otp string) (*service.Session, error) {
	f.verified = [2]string{userID, otp}
	return f.session, f.err
}

func (f *fakeAuth) ForgotPassword(context.Context, string) error { return f.err }

func (f *fakeAuth) ForgotVerifyOTP(context.Context, string, string) error { return f.err }

func (f *fakeAuth) ResetPassword(context.Context, string, string, string, string) error {
	return f.err
}

func (f *fakeAuth) Logout(_ context.Context, hash string) error {
	f.loggedOut = hash
	return f.err
}

func (f *fakeAuth) Profile(context.Context, uint64) (*model.User, error) { return f.user, f.err }

func (f *fakeAuth) UpdateProfile(_ context.Context, _ uint64, p service.ProfilePatch, up *media.Upload) (*model.User, error) {
	f.patch, f.upload = p, up
	return f.user, f.err
}

func (f *fakeAuth) DeleteAccount(_ context.Context, id uint64) error {
	f.deletedID = id
	return f.err
}

func (f *fakeAuth) ListUsers(context.Context) ([]*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*model.User{f.user}, nil
}

func (f *fakeAuth) GetUser(context.Context, uint64) (*model.User, error) { return f.user, f.err }

func (f *fakeAuth) UpdateUser(_ context.Context, _ uint64, p service.ProfilePatch, up *media.Upload) (*model.User, error) {
	f.patch, f.upload = p, up
	return f.user, f.err
}

func (f *fakeAuth) DeleteUser(_ context.Context, id uint64) error {
	f.deletedID = id
	return f.err
}

type fakeEquipment struct {
	err  error
	item *model.Equipment

	input  service.EquipmentInput
	patch  service.EquipmentPatch
	upload *media.Upload
	remove bool
}

func (f *fakeEquipment) List(context.Context) ([]*model.Equipment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*model.Equipment{f.item}, nil
}

func (f *fakeEquipment) Get(context.Context, uint64) (*model.Equipment, error) {
	return f.item, f.err
}

func (f *fakeEquipment) Create(_ context.Context, _ uint64, in service.EquipmentInput, up *media.Upload) (*model.Equipment, error) {
	f.input, f.upload = in, up
	return f.item, f.err
}

func (f *fakeEquipment) Update(_ context.Context, _ uint64, p service.EquipmentPatch, up *media.Upload, remove bool) (*model.Equipment, error) {
	f.patch, f.upload, f.remove = p, up, remove
	return f.item, f.err
}

func (f *fakeEquipment) Delete(context.Context, uint64) error { return f.err }

type fakeOrders struct {
	err   error
	order *model.Order
	input service.OrderInput
}

func (f *fakeOrders) ListMine(context.Context, uint64) ([]*model.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*model.Order{f.order}, nil
}

func (f *fakeOrders) Create(_ context.Context, _ uint64, in service.OrderInput) (*model.Order, error) {
	f.input = in
	return f.order, f.err
}

// asUser stands in for TokenAuth.
func asUser(id uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.CtxUserID, id)
			c.Set(middleware.CtxRole, model.RoleCustomer)
			c.Set(middleware.CtxTokenHash, "hash")
			return next(c)
		}
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// multipartRequest builds a form with the given values and, when fileField
// is set, a small file under that name.
func multipartRequest(t *testing.T, method, target string, values map[string]string, fileField string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range values {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, "drill.png")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, "\x89PNG\r\n\x1a\n"); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}
