package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
)

// SaveRequest wraps parameters for saving a finished invoice.
type SaveRequest struct {
	Invoice    *entity.FinishedInvoice
	SourceType constants.SourceType
	SourceName string
}

type InvoiceRepository interface {
	Save(ctx context.Context, req SaveRequest) (*entity.SavedInvoice, error)
	Update(ctx context.Context, id string, inv *entity.FinishedInvoice) (*entity.SavedInvoice, error)
	List(ctx context.Context, includeDeleted bool) ([]*entity.SavedInvoice, error)
	Get(ctx context.Context, id string) (*entity.SavedInvoice, error)
	UpdateStatus(ctx context.Context, id string, status constants.InvoiceStatus) (*entity.SavedInvoice, error)
	Delete(ctx context.Context, id string) (*entity.SavedInvoice, error)
	Restore(ctx context.Context, id string) (*entity.SavedInvoice, error)
	Close(ctx context.Context)
}

type invoiceRepository struct {
	db     *DB
	logger *slog.Logger
	writes *mutationQueue
	now    func() time.Time
}

func NewInvoiceRepository(db *DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{
		db:     db,
		logger: logger,
		writes: newMutationQueue(logger, 64),
		now:    time.Now,
	}
}

const selectInvoice = `SELECT invoice_id, created_at_ms, updated_at_ms, status, previous_status, source_type, source_name, data FROM invoices`

func (r *invoiceRepository) Save(ctx context.Context, req SaveRequest) (*entity.SavedInvoice, error) {
	if req.Invoice == nil {
		return nil, common.NewValidationError("invoice", nil, "invoice is required")
	}
	if err := entity.ValidateFinishedInvoice(req.Invoice); err != nil {
		return nil, err
	}
	source := req.SourceType
	if source == "" {
		source = constants.SourceTypeText
	}
	now := r.now().UTC().Truncate(time.Millisecond)
	saved := &entity.SavedInvoice{
		InvoiceID:  uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
		Status:     constants.InvoiceStatusDraft,
		SourceType: source,
		SourceName: req.SourceName,
		Invoice:    req.Invoice.Clone(),
	}
	data, err := json.Marshal(saved.Invoice)
	if err != nil {
		return nil, fmt.Errorf("encode invoice: %w", err)
	}

	err = r.writes.do(ctx, "save", func(ctx context.Context) error {
		_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(`INSERT INTO invoices
			(invoice_id, created_at_ms, updated_at_ms, status, previous_status, source_type, source_name, invoice_number, currency, total, data)
			VALUES (?, ?, ?, ?, '', ?, ?, ?, ?, ?, ?)`),
			saved.InvoiceID, now.UnixMilli(), now.UnixMilli(), string(saved.Status), string(source), req.SourceName,
			saved.Invoice.InvoiceNumber, saved.Invoice.Currency, saved.Invoice.Total, string(data))
		return err
	})
	if err != nil {
		r.logger.Error("failed to save invoice", "error", err)
		return nil, storeErr("save invoice", err)
	}
	r.logger.Info("invoice saved", "invoice_id", saved.InvoiceID, "invoice_number", saved.Invoice.InvoiceNumber, "source_type", source)
	return saved, nil
}

// Update replaces the stored invoice body, keeping lifecycle fields.
func (r *invoiceRepository) Update(ctx context.Context, id string, inv *entity.FinishedInvoice) (*entity.SavedInvoice, error) {
	if inv == nil {
		return nil, common.NewValidationError("invoice", nil, "invoice is required")
	}
	if err := entity.ValidateFinishedInvoice(inv); err != nil {
		return nil, err
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("encode invoice: %w", err)
	}
	var out *entity.SavedInvoice
	err = r.writes.do(ctx, "update", func(ctx context.Context) error {
		cur, err := r.get(ctx, id)
		if err != nil {
			return err
		}
		now := r.now().UTC().Truncate(time.Millisecond)
		_, err = r.db.SQL.ExecContext(ctx, r.db.rebind(`UPDATE invoices
			SET updated_at_ms = ?, invoice_number = ?, currency = ?, total = ?, data = ?
			WHERE invoice_id = ?`),
			now.UnixMilli(), inv.InvoiceNumber, inv.Currency, inv.Total, string(data), id)
		if err != nil {
			return err
		}
		cur.UpdatedAt = now
		cur.Invoice = inv.Clone()
		out = cur
		return nil
	})
	if err != nil {
		return nil, storeErr("update invoice", err)
	}
	r.logger.Info("invoice updated", "invoice_id", id)
	return out, nil
}

func (r *invoiceRepository) List(ctx context.Context, includeDeleted bool) ([]*entity.SavedInvoice, error) {
	q := selectInvoice
	var args []any
	if !includeDeleted {
		q += ` WHERE status <> ?`
		args = append(args, string(constants.InvoiceStatusDeleted))
	}
	q += ` ORDER BY created_at_ms DESC, invoice_id`

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, storeErr("list invoices", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.SavedInvoice
	for rows.Next() {
		s, err := scanInvoice(rows)
		if err != nil {
			return nil, storeErr("list invoices", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list invoices", err)
	}
	return out, nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*entity.SavedInvoice, error) {
	s, err := r.get(ctx, id)
	if err != nil {
		return nil, storeErr("get invoice", err)
	}
	return s, nil
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id string, status constants.InvoiceStatus) (*entity.SavedInvoice, error) {
	if _, ok := constants.ParseInvoiceStatus(string(status)); !ok {
		return nil, common.NewValidationError("status", string(status), "status must be one of draft, sent, paid")
	}
	if status == constants.InvoiceStatusDeleted {
		return r.Delete(ctx, id)
	}
	return r.transition(ctx, "update_status", id, func(cur *entity.SavedInvoice) (constants.InvoiceStatus, constants.InvoiceStatus, bool, error) {
		if cur.Status == constants.InvoiceStatusDeleted {
			return "", "", false, common.NewValidationError("status", string(status), "invoice is deleted; restore it first")
		}
		return status, "", cur.Status != status, nil
	})
}

// Delete soft-deletes: status becomes deleted and the prior status is remembered.
func (r *invoiceRepository) Delete(ctx context.Context, id string) (*entity.SavedInvoice, error) {
	return r.transition(ctx, "delete", id, func(cur *entity.SavedInvoice) (constants.InvoiceStatus, constants.InvoiceStatus, bool, error) {
		if cur.Status == constants.InvoiceStatusDeleted {
			return cur.Status, cur.PreviousStatus, false, nil
		}
		return constants.InvoiceStatusDeleted, cur.Status, true, nil
	})
}

// Restore returns a deleted invoice to its prior status.
func (r *invoiceRepository) Restore(ctx context.Context, id string) (*entity.SavedInvoice, error) {
	return r.transition(ctx, "restore", id, func(cur *entity.SavedInvoice) (constants.InvoiceStatus, constants.InvoiceStatus, bool, error) {
		if cur.Status != constants.InvoiceStatusDeleted {
			return cur.Status, cur.PreviousStatus, false, nil
		}
		prev := cur.PreviousStatus
		if prev == "" {
			prev = constants.InvoiceStatusDraft
		}
		return prev, "", true, nil
	})
}

func (r *invoiceRepository) Close(ctx context.Context) {
	r.writes.shutdown(ctx)
}

// transition applies next to the current row inside the write queue. next
// returns the new status, the remembered prior status and whether anything changed.
func (r *invoiceRepository) transition(
	ctx context.Context,
	op, id string,
	next func(cur *entity.SavedInvoice) (constants.InvoiceStatus, constants.InvoiceStatus, bool, error),
) (*entity.SavedInvoice, error) {
	var out *entity.SavedInvoice
	err := r.writes.do(ctx, op, func(ctx context.Context) error {
		cur, err := r.get(ctx, id)
		if err != nil {
			return err
		}
		status, prev, changed, err := next(cur)
		if err != nil {
			return err
		}
		if !changed {
			out = cur
			return nil
		}
		now := r.now().UTC().Truncate(time.Millisecond)
		_, err = r.db.SQL.ExecContext(ctx, r.db.rebind(`UPDATE invoices
			SET status = ?, previous_status = ?, updated_at_ms = ?
			WHERE invoice_id = ?`),
			string(status), string(prev), now.UnixMilli(), id)
		if err != nil {
			return err
		}
		cur.Status, cur.PreviousStatus, cur.UpdatedAt = status, prev, now
		out = cur
		return nil
	})
	if err != nil {
		return nil, storeErr(op, err)
	}
	r.logger.Info("invoice status changed", "op", op, "invoice_id", id, "status", out.Status)
	return out, nil
}

func (r *invoiceRepository) get(ctx context.Context, id string) (*entity.SavedInvoice, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(selectInvoice+` WHERE invoice_id = ?`), id)
	s, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFoundError(fmt.Sprintf("invoice %s not found", id))
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(sc scanner) (*entity.SavedInvoice, error) {
	var s entity.SavedInvoice
	var created, updated int64
	var status, prev, source, data string
	if err := sc.Scan(&s.InvoiceID, &created, &updated, &status, &prev, &source, &s.SourceName, &data); err != nil {
		return nil, err
	}
	s.CreatedAt = time.UnixMilli(created).UTC()
	s.UpdatedAt = time.UnixMilli(updated).UTC()
	s.Status = constants.InvoiceStatus(status)
	s.PreviousStatus = constants.InvoiceStatus(prev)
	s.SourceType = constants.SourceType(source)

	var inv entity.FinishedInvoice
	if err := json.Unmarshal([]byte(data), &inv); err != nil {
		return nil, fmt.Errorf("decode stored invoice %s: %w", s.InvoiceID, err)
	}
	s.Invoice = &inv
	return &s, nil
}

// storeErr keeps taxonomy errors as they are and wraps everything else as a store failure.
func storeErr(op string, err error) error {
	var ae *common.AppError
	var ve common.ValidationError
	if errors.As(err, &ae) || errors.As(err, &ve) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return common.NewAppError(common.CodeStore, op+" failed", fmt.Errorf("%w: %w", common.ErrDatabase, err))
}
