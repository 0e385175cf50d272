package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/equipment-rental/internal/model"
)

// ErrUserNotFound is returned when no user row matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserRepo encapsulates all queries against the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, firstname, lastname, username, email, password, role, status, otp, image, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u     model.User
		otp   sql.NullString
		image sql.NullString
	)
	err := row.Scan(&u.ID, &u.Firstname, &u.Lastname, &u.Username, &u.Email, &u.PasswordHash,
		&u.Role, &u.Status, &otp, &image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if otp.Valid {
		u.OTP = &otp.String
	}
	if image.Valid {
		u.Image = &image.String
	}
	return &u, nil
}

// Create inserts a user and populates its ID and timestamps.  Email is
// normalized to lower case.  Unique violations surface as *DuplicateError.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (firstname, lastname, username, email, password, role, status, otp, image)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		u.Firstname, u.Lastname, u.Username, u.Email, u.PasswordHash, u.Role, u.Status, u.OTP, u.Image)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*u = *created
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username)))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UsernameTaken reports whether another user (id != excludeID) owns the
// username.  Pass 0 to check against every row.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM users WHERE username=? AND id<>? LIMIT 1", strings.TrimSpace(username), excludeID)
}

// EmailTaken is UsernameTaken for the email column.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM users WHERE email=? AND id<>? LIMIT 1", normalizeEmail(email), excludeID)
}

func (r *UserRepo) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateProfile writes the allow-listed profile columns of u.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET firstname=?, lastname=?, username=?, email=?, image=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		u.Firstname, u.Lastname, u.Username, u.Email, u.Image, u.ID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res, ErrUserNotFound)
}

// SetOTP stores a fresh one-time code for the user.
func (r *UserRepo) SetOTP(ctx context.Context, id uint64, otp string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET otp=? WHERE id=?", otp, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

// Activate marks the account active and consumes the OTP in one statement.
func (r *UserRepo) Activate(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status=?, otp=NULL WHERE id=?", model.StatusActive, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

// ResetPassword replaces the password hash and consumes the OTP.
func (r *UserRepo) ResetPassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password=?, otp=NULL WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

// Delete removes the user row.  Tokens and orders cascade in the schema;
// equipment created by the user keeps existing with a NULL owner.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res, ErrUserNotFound)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// requireAffected turns a zero RowsAffected into notFound.  The connection
// is opened with clientFoundRows, so an UPDATE that matches a row without
// changing it still counts as one.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
