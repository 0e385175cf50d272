package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/mailer"
	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/repository"
	"github.com/iliyamo/equipment-rental/internal/utils"
)

// tokenName is recorded in personal_access_tokens.name.
const tokenName = "auth_token"

// AuthConfig carries the settings AuthService needs from config.Config.
type AuthConfig struct {
	JWTSecret    string
	TokenTTLMin  int
	BcryptCost   int
	DefaultImage string
	MaxUploadKB  int64
}

// AuthService owns registration, OTP verification, password reset, bearer
// tokens and profile management.
type AuthService struct {
	users  UserStore
	tokens TokenStore
	media  MediaStore
	mail   mailer.Notifier
	cfg    AuthConfig
	log    *zap.Logger
}

func NewAuthService(users UserStore, tokens TokenStore, store MediaStore, mail mailer.Notifier, cfg AuthConfig, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, media: store, mail: mail, cfg: cfg, log: log}
}

// RegisterInput is the payload of POST /register.
type RegisterInput struct {
	Firstname string `json:"firstname" validate:"required,max=255"`
	Lastname  string `json:"lastname" validate:"required,max=255"`
	Username  string `json:"username" validate:"required,max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=6"`
}

// ProfilePatch holds the allow-listed profile columns.  Nil means the field
// was absent from the request and stays untouched.
type ProfilePatch struct {
	Firstname *string
	Lastname  *string
	Username  *string
	Email     *string
}

// Session is returned by a successful login or verification.
type Session struct {
	User  *model.User
	Token string
}

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID    uint64
	Role      string
	TokenHash string
}

// Register creates a Pending customer, stores a fresh OTP and mails it.
// Mail failures are logged and do not fail the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Firstname = strings.TrimSpace(in.Firstname)
	in.Lastname = strings.TrimSpace(in.Lastname)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	ve := newValidationError()
	checkStruct(ve, in)
	if err := s.checkUnique(ctx, ve, in.Username, in.Email, 0); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	otp, err := utils.NewOTP()
	if err != nil {
		return nil, err
	}
	image := s.cfg.DefaultImage
	u := &model.User{
		Firstname:    in.Firstname,
		Lastname:     in.Lastname,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.RoleCustomer,
		Status:       model.StatusPending,
		OTP:          &otp,
		Image:        &image,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, duplicateToValidation(err)
	}

	if err := s.mail.SendVerificationOTP(ctx, recipient(u), otp); err != nil {
		s.log.Error("otp email failed", zap.String("email", u.Email), zap.Error(err))
	}
	return s.decorate(u), nil
}

// Login authenticates an active account and issues a new token, revoking
// every earlier one.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	ve := newValidationError()
	checkVar(ve, "username", strings.TrimSpace(username), "required")
	checkVar(ve, "password", password, "required")
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive() {
		return nil, &PendingVerificationError{UserID: u.ID}
	}
	return s.startSession(ctx, u)
}

// Verify activates the account when otp matches the stored code.  A
// mismatch leaves the account untouched.
func (s *AuthService) Verify(ctx context.Context, userID, otp string) (*Session, error) {
	ve := newValidationError()
	checkVar(ve, "user_id", strings.TrimSpace(userID), "required")
	checkVar(ve, "otp", otp, "required,max=6")
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(strings.TrimSpace(userID), 10, 64)
	if err != nil {
		return nil, fieldError("user_id", invalidSelection("user_id"))
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fieldError("user_id", invalidSelection("user_id"))
	}
	if err != nil {
		return nil, err
	}
	if !utils.OTPMatches(u.OTP, otp) {
		return nil, ErrInvalidOTP
	}
	if err := s.users.Activate(ctx, u.ID); err != nil {
		return nil, err
	}
	u.Status = model.StatusActive
	u.OTP = nil
	return s.startSession(ctx, u)
}

// ForgotPassword stores a new OTP for the account behind email, if any, and
// mails it.  The outcome is indistinguishable for unknown addresses.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	ve := newValidationError()
	checkVar(ve, "email", email, "required,email")
	if err := ve.OrNil(); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	otp, err := utils.NewOTP()
	if err != nil {
		return err
	}
	if err := s.users.SetOTP(ctx, u.ID, otp); err != nil {
		return err
	}
	if err := s.mail.SendPasswordResetOTP(ctx, recipient(u), otp); err != nil {
		s.log.Error("password reset email failed", zap.String("email", u.Email), zap.Error(err))
	}
	return nil
}

// ForgotVerifyOTP checks a reset code without consuming it.
func (s *AuthService) ForgotVerifyOTP(ctx context.Context, email, otp string) error {
	email = strings.TrimSpace(email)
	ve := newValidationError()
	checkVar(ve, "email", email, "required,email,max=255")
	checkVar(ve, "otp", otp, "required,len=6")
	if err := ve.OrNil(); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !utils.OTPMatches(u.OTP, otp) {
		return ErrOTPMismatch
	}
	return nil
}

// ResetPassword replaces the password when otp matches and clears the code.
// No token is issued.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, password, confirmation string) error {
	email = strings.TrimSpace(email)
	ve := newValidationError()
	checkVar(ve, "email", email, "required,email")
	checkVar(ve, "otp", otp, "required,max=6")
	checkVar(ve, "password", password, "required,min=6")
	if !ve.Has("password") && password != confirmation {
		ve.Add("password", "The password field confirmation does not match.")
	}

	var u *model.User
	if !ve.Has("email") {
		var err error
		u, err = s.users.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			ve.Add("email", invalidSelection("email"))
		case err != nil:
			return err
		}
	}
	if err := ve.OrNil(); err != nil {
		return err
	}

	if !utils.OTPMatches(u.OTP, otp) {
		return ErrInvalidOTP
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	return s.users.ResetPassword(ctx, u.ID, hash)
}

// Authenticate resolves a raw bearer token into an Identity.  The token
// must carry a valid signature, be unexpired and still be active in the
// token store.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*Identity, error) {
	claims, err := utils.ParseBearerToken(s.cfg.JWTSecret, raw)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	hash := utils.HashToken(raw)
	owner, err := s.tokens.Validate(ctx, hash)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if owner != claims.UserID {
		return nil, ErrUnauthenticated
	}
	u, err := s.users.GetByID(ctx, owner)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: u.ID, Role: u.Role, TokenHash: hash}, nil
}

// Logout revokes only the presented token.
func (s *AuthService) Logout(ctx context.Context, tokenHash string) error {
	return s.tokens.RevokeByHash(ctx, tokenHash)
}

// Profile returns the caller's own record.
func (s *AuthService) Profile(ctx context.Context, userID uint64) (*model.User, error) {
	return s.GetUser(ctx, userID)
}

// UpdateProfile applies patch and an optional new image to the caller.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, patch ProfilePatch, up *media.Upload) (*model.User, error) {
	return s.UpdateUser(ctx, userID, patch, up)
}

// DeleteAccount removes the caller together with their tokens and image.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint64) error {
	return s.DeleteUser(ctx, userID)
}

// ListUsers returns every account.
func (s *AuthService) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		s.decorate(u)
	}
	return users, nil
}

// GetUser returns a single account.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decorate(u), nil
}

// UpdateUser validates every present field and the upload before writing
// anything.  A replaced image is deleted once the row points at the new
// one; the default image is never deleted.
func (s *AuthService) UpdateUser(ctx context.Context, id uint64, patch ProfilePatch, up *media.Upload) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ve := newValidationError()
	if patch.Firstname != nil {
		checkVar(ve, "firstname", strings.TrimSpace(*patch.Firstname), "required,max=255")
	}
	if patch.Lastname != nil {
		checkVar(ve, "lastname", strings.TrimSpace(*patch.Lastname), "required,max=255")
	}
	if patch.Username != nil {
		checkVar(ve, "username", strings.TrimSpace(*patch.Username), "required,max=255")
	}
	if patch.Email != nil {
		checkVar(ve, "email", strings.TrimSpace(*patch.Email), "required,email,max=255")
	}
	if err := s.checkUnique(ctx, ve, deref(patch.Username), deref(patch.Email), u.ID); err != nil {
		return nil, err
	}
	checkUpload(ve, s.media, up, s.cfg.MaxUploadKB)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if patch.Firstname != nil {
		u.Firstname = strings.TrimSpace(*patch.Firstname)
	}
	if patch.Lastname != nil {
		u.Lastname = strings.TrimSpace(*patch.Lastname)
	}
	if patch.Username != nil {
		u.Username = strings.TrimSpace(*patch.Username)
	}
	if patch.Email != nil {
		u.Email = strings.TrimSpace(*patch.Email)
	}

	oldImage := deref(u.Image)
	var newImage string
	if up != nil {
		newImage, err = s.media.Store(ctx, media.ProfileDir, *up)
		if err != nil {
			return nil, err
		}
		u.Image = &newImage
	}

	if err := s.users.UpdateProfile(ctx, u); err != nil {
		removeFile(ctx, s.media, s.log, newImage)
		return nil, duplicateToValidation(err)
	}
	if newImage != "" && !s.isDefaultImage(oldImage) {
		removeFile(ctx, s.media, s.log, oldImage)
	}

	updated, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return s.decorate(updated), nil
}

// DeleteUser deletes a non-default image, revokes all tokens and removes
// the row.  Orders cascade with the row.
func (s *AuthService) DeleteUser(ctx context.Context, id uint64) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return err
	}
	if img := deref(u.Image); !s.isDefaultImage(img) {
		removeFile(ctx, s.media, s.log, img)
	}
	return nil
}

func (s *AuthService) startSession(ctx context.Context, u *model.User) (*Session, error) {
	if err := s.tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return nil, err
	}
	tok, err := utils.NewBearerToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.TokenTTLMin)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Store(ctx, u.ID, tokenName, tok.Hash, tok.Exp); err != nil {
		return nil, err
	}
	return &Session{User: s.decorate(u), Token: tok.Token}, nil
}

// checkUnique adds "already taken" messages for username/email owned by
// another account.  Empty values are skipped.
func (s *AuthService) checkUnique(ctx context.Context, ve *ValidationError, username, email string, excludeID uint64) error {
	if username = strings.TrimSpace(username); username != "" && !ve.Has("username") {
		taken, err := s.users.UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if taken {
			ve.Add("username", takenMessage("username"))
		}
	}
	if email = strings.TrimSpace(email); email != "" && !ve.Has("email") {
		taken, err := s.users.EmailTaken(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			ve.Add("email", takenMessage("email"))
		}
	}
	return nil
}

func (s *AuthService) isDefaultImage(ref string) bool {
	return ref == "" || strings.Contains(ref, s.cfg.DefaultImage)
}

func (s *AuthService) decorate(u *model.User) *model.User {
	u.ImageURL = urlFor(s.media, u.Image)
	return u
}

func recipient(u *model.User) mailer.Recipient {
	return mailer.Recipient{Email: u.Email, Name: u.Firstname}
}
