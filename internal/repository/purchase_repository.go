package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// PurchaseRepo provides data access to purchases, their line items and the
// payment row reported by the payment service.  A purchase has at most one
// payment (payments.purchase_id is UNIQUE).
type PurchaseRepo struct {
    db *sql.DB
}

// NewPurchaseRepo returns a new PurchaseRepo bound to the given database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// CreatePurchase inserts p and assigns the generated ID.
func (r *PurchaseRepo) CreatePurchase(ctx context.Context, p *model.Purchase) error {
    res, err := conn(ctx, r.db).ExecContext(ctx,
        `INSERT INTO purchases (user_id, created_at) VALUES (?, ?)`, p.UserID, p.CreatedAt.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    return nil
}

func (r *PurchaseRepo) get(ctx context.Context, id uint64, suffix string) (*model.Purchase, error) {
    q := `SELECT p.id, p.user_id, COALESCE(pay.status, ''), p.created_at
          FROM purchases p
          LEFT JOIN payments pay ON pay.purchase_id = p.id
          WHERE p.id = ?` + suffix
    var p model.Purchase
    err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(&p.ID, &p.UserID, &p.PaymentStatus, &p.CreatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrPurchaseNotFound
        }
        return nil, err
    }
    return &p, nil
}

// GetPurchase returns the purchase with its payment status filled in.
func (r *PurchaseRepo) GetPurchase(ctx context.Context, id uint64) (*model.Purchase, error) {
    return r.get(ctx, id, "")
}

// GetPurchaseForUpdate locks the purchase and its payment row.  Payment
// updates and cancellations of one purchase therefore serialize, and a
// cancellation never races a payment turning COMPLETED.
func (r *PurchaseRepo) GetPurchaseForUpdate(ctx context.Context, id uint64) (*model.Purchase, error) {
    return r.get(ctx, id, " FOR UPDATE")
}

// DeletePurchase removes the purchase and its payment row.
func (r *PurchaseRepo) DeletePurchase(ctx context.Context, id uint64) error {
    q := conn(ctx, r.db)
    if _, err := q.ExecContext(ctx, `DELETE FROM payments WHERE purchase_id = ?`, id); err != nil {
        return err
    }
    res, err := q.ExecContext(ctx, `DELETE FROM purchases WHERE id = ?`, id)
    if err != nil {
        return err
    }
    return requireRow(res, ErrPurchaseNotFound)
}

// DeleteLineItems removes every line item of the purchase and returns the
// number removed.
func (r *PurchaseRepo) DeleteLineItems(ctx context.Context, purchaseID uint64) (int64, error) {
    res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM purchase_line_items WHERE purchase_id = ?`, purchaseID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// UpsertPayment records the latest payment status for the purchase.
func (r *PurchaseRepo) UpsertPayment(ctx context.Context, purchaseID uint64, status, providerRef string) error {
    const q = `INSERT INTO payments (purchase_id, status, provider_ref, updated_at)
               VALUES (?, ?, ?, UTC_TIMESTAMP())
               ON DUPLICATE KEY UPDATE status = VALUES(status),
                                       provider_ref = COALESCE(VALUES(provider_ref), provider_ref),
                                       updated_at = VALUES(updated_at)`
    _, err := conn(ctx, r.db).ExecContext(ctx, q, purchaseID, status, nullString(providerRef))
    return err
}
