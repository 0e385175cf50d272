package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/equipment-rental/internal/model"
)

// OrderRepo provides persistence for orders.  Orders are insert-only; a
// listing joins each order with its equipment.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// Create inserts a new order and queries back the full row so defaults and
// timestamps are populated.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders (user_id, equipment_id, quantity, total_price, status) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, o.UserID, o.EquipmentID, o.Quantity, priceArg(o.TotalPrice), o.Status)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	const sel = `SELECT id, user_id, equipment_id, quantity, total_price, status, created_at, updated_at FROM orders WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, id).Scan(
		&o.ID, &o.UserID, &o.EquipmentID, &o.Quantity, &o.TotalPrice, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
}

// ListByUser returns the user's orders, newest first, each carrying the
// referenced equipment.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Order, error) {
	const q = `
        SELECT o.id, o.user_id, o.equipment_id, o.quantity, o.total_price, o.status, o.created_at, o.updated_at,
               e.id, e.name, e.description, e.price, e.image, e.status, e.user_id, e.created_at, e.updated_at
        FROM orders o
        JOIN equipment e ON e.id = o.equipment_id
        WHERE o.user_id = ?
        ORDER BY o.created_at DESC, o.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Order{}
	for rows.Next() {
		var (
			o     model.Order
			e     model.Equipment
			desc  sql.NullString
			image sql.NullString
			owner sql.NullInt64
		)
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.EquipmentID, &o.Quantity, &o.TotalPrice, &o.Status, &o.CreatedAt, &o.UpdatedAt,
			&e.ID, &e.Name, &desc, &e.Price, &image, &e.Status, &owner, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
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
		o.Equipment = &e
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
