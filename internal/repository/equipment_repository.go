package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/equipment-rental/internal/model"
)

// ErrEquipmentNotFound is returned when an equipment row cannot be found.
var ErrEquipmentNotFound = errors.New("equipment not found")

// EquipmentRepo encapsulates all queries against the equipment table.
type EquipmentRepo struct {
	db *sql.DB
}

// NewEquipmentRepo constructs an EquipmentRepo with the provided DB handle.
func NewEquipmentRepo(db *sql.DB) *EquipmentRepo {
	return &EquipmentRepo{db: db}
}

const equipmentColumns = "id, name, description, price, image, status, user_id, created_at, updated_at"

func scanEquipment(row rowScanner) (*model.Equipment, error) {
	var (
		e     model.Equipment
		desc  sql.NullString
		image sql.NullString
		owner sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.Name, &desc, &e.Price, &image, &e.Status, &owner, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	if desc.Valid {
		e.Description = &desc.String
	}
	if image.Valid {
		e.Image = &image.String
	}
	if owner.Valid {
		uid := uint64(owner.Int64)
		e.UserID = &uid
	}
	return &e, nil
}

// List returns all equipment ordered by id.
func (r *EquipmentRepo) List(ctx context.Context) ([]*model.Equipment, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+equipmentColumns+" FROM equipment ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Equipment{}
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a single equipment row.
func (r *EquipmentRepo) GetByID(ctx context.Context, id uint64) (*model.Equipment, error) {
	return scanEquipment(r.db.QueryRowContext(ctx,
		"SELECT "+equipmentColumns+" FROM equipment WHERE id = ?", id))
}

// Create inserts e and reloads it so defaults (status, timestamps) are
// populated.
func (r *EquipmentRepo) Create(ctx context.Context, e *model.Equipment) error {
	if e.Status == "" {
		e.Status = model.EquipmentAvailable
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO equipment (name, description, price, image, status, user_id) VALUES (?, ?, ?, ?, ?, ?)",
		e.Name, e.Description, priceArg(e.Price), e.Image, e.Status, e.UserID)
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
	*e = *created
	return nil
}

// Update writes every mutable column of e and reloads the row.
func (r *EquipmentRepo) Update(ctx context.Context, e *model.Equipment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE equipment
		 SET name = ?, description = ?, price = ?, image = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Name, e.Description, priceArg(e.Price), e.Image, e.Status, e.ID)
	if err != nil {
		return translate(err)
	}
	if err := requireAffected(res, ErrEquipmentNotFound); err != nil {
		return err
	}
	updated, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *updated
	return nil
}

// Delete removes the row.  Returns ErrEquipmentNotFound when absent and
// ErrConflict while orders still reference it.
func (r *EquipmentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM equipment WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res, ErrEquipmentNotFound)
}

// priceArg renders the decimal with exactly two places, matching the
// DECIMAL(10,2) column.
func priceArg(d decimal.Decimal) string {
	return d.StringFixed(2)
}
