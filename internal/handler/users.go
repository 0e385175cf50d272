package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/service"
)

// UserService is the part of *service.AuthService behind the profile and
// admin user endpoints.
type UserService interface {
	Profile(ctx context.Context, userID uint64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint64, patch service.ProfilePatch, up *media.Upload) (*model.User, error)
	DeleteAccount(ctx context.Context, userID uint64) error
	ListUsers(ctx context.Context) ([]*model.User, error)
	GetUser(ctx context.Context, id uint64) (*model.User, error)
	UpdateUser(ctx context.Context, id uint64, patch service.ProfilePatch, up *media.Upload) (*model.User, error)
	DeleteUser(ctx context.Context, id uint64) error
}

var profileFields = []string{"firstname", "lastname", "username", "email"}

// UserHandler serves /user/profile for the caller and /users for admins.
type UserHandler struct {
	Users UserService
	Log   *zap.Logger
}

func NewUserHandler(users UserService, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{Users: users, Log: log}
}

func (h *UserHandler) patch(c echo.Context) (service.ProfilePatch, *media.Upload, error) {
	f, err := readFields(c, profileFields...)
	if err != nil {
		return service.ProfilePatch{}, nil, err
	}
	up, err := readUpload(c, "image")
	if err != nil {
		return service.ProfilePatch{}, nil, err
	}
	return service.ProfilePatch{
		Firstname: f.ptr("firstname"),
		Lastname:  f.ptr("lastname"),
		Username:  f.ptr("username"),
		Email:     f.ptr("email"),
	}, up, nil
}

// Profile handles GET /user/profile.
func (h *UserHandler) Profile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.Profile(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateProfile handles POST/PUT/PATCH /user/profile.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	patch, up, err := h.patch(c)
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, uid, patch, up)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully", "user": u})
}

// DeleteProfile handles DELETE /user/profile.
func (h *UserHandler) DeleteProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Users.DeleteAccount(ctx, uid); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /users.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Users.ListUsers(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Show handles GET /users/:id.
func (h *UserHandler) Show(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return message(c, http.StatusNotFound, "User not found.")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetUser(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Update handles PUT/PATCH /users/:id.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return message(c, http.StatusNotFound, "User not found.")
	}
	patch, up, err := h.patch(c)
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.UpdateUser(ctx, id, patch, up)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully", "user": u})
}

// Destroy handles DELETE /users/:id.
func (h *UserHandler) Destroy(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return message(c, http.StatusNotFound, "User not found.")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Users.DeleteUser(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
