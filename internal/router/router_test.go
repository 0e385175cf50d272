package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/equipment-rental/internal/config"
	"github.com/iliyamo/equipment-rental/internal/handler"
	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/service"
)

type adminAuth struct{}

func (adminAuth) Authenticate(_ context.Context, raw string) (*service.Identity, error) {
	if raw != "admin-token" {
		return nil, service.ErrUnauthenticated
	}
	return &service.Identity{UserID: 1, Role: model.RoleAdmin, TokenHash: "h"}, nil
}

// stubUsers accepts every delete.
type stubUsers struct{ deleted []uint64 }

func (s *stubUsers) Profile(context.Context, uint64) (*model.User, error) { return &model.User{}, nil }

func (s *stubUsers) UpdateProfile(context.Context, uint64, service.ProfilePatch, *media.Upload) (*model.User, error) {
	return &model.User{}, nil
}

func (s *stubUsers) DeleteAccount(_ context.Context, id uint64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubUsers) ListUsers(context.Context) ([]*model.User, error) { return nil, nil }

func (s *stubUsers) GetUser(context.Context, uint64) (*model.User, error) { return &model.User{}, nil }

func (s *stubUsers) UpdateUser(context.Context, uint64, service.ProfilePatch, *media.Upload) (*model.User, error) {
	return &model.User{}, nil
}

func (s *stubUsers) DeleteUser(_ context.Context, id uint64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func TestAccountDeletesPurgeEquipmentCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := &stubUsers{}
	cacheCfg := config.CacheConfig{
		Enabled: true,
		Methods: map[string]bool{http.MethodGet: true},
		TTL:     time.Minute,
		Prefix:  "cache:equipment",
	}
	e := echo.New()
	Register(e, Deps{
		Auth:          handler.NewAuthHandler(nil, nil),
		Users:         handler.NewUserHandler(users, nil),
		Equipment:     handler.NewEquipmentHandler(nil, nil),
		Orders:        handler.NewOrderHandler(nil, nil),
		Authenticator: adminAuth{},
		Redis:         rdb,
		RateLimit:     config.RateLimitConfig{},
		Cache:         cacheCfg,
	})

	for _, target := range []string{"/user/profile", "/users/5"} {
		if err := mr.Set("cache:equipment:listing", "stale"); err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodDelete, target, nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer admin-token")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: status %d", target, rec.Code)
		}
		if mr.Exists("cache:equipment:listing") {
			t.Errorf("%s left the equipment cache in place", target)
		}
	}
	if len(users.deleted) != 2 {
		t.Fatalf("deletes reached the service %d times", len(users.deleted))
	}
}
