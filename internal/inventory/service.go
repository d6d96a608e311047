package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

// Reconciliation compares a counter with the ledger that produced it.
type Reconciliation struct {
	ProductID    uuid.UUID  `json:"product_id"`
	VariantID    *uuid.UUID `json:"variant_id,omitempty"`
	CurrentStock int        `json:"current_stock"`
	LedgerStock  int        `json:"ledger_stock"`
	Consistent   bool       `json:"consistent"`
}

// Service applies stock changes. Every change appends exactly one movement
// next to the counter update, so the ledger always sums to the counter.
type Service interface {
	Decrement(ctx context.Context, tx *gorm.DB, ref StockRef, qty int, reference string) (int, error)
	Increment(ctx context.Context, tx *gorm.DB, ref StockRef, qty int, reason enums.MovementReason, reference string) error
	Restock(ctx context.Context, ref StockRef, qty int, reason enums.MovementReason, reference string) error
	ListMovements(ctx context.Context, productID uuid.UUID) ([]models.InventoryMovement, error)
	Reconcile(ctx context.Context, ref StockRef) (*Reconciliation, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Decrement runs the compare-and-swap on tx and returns the remaining stock.
// Zero affected rows means another writer got there first or stock was
// never sufficient; either way the caller's transaction must roll back.
func (s *service) Decrement(ctx context.Context, tx *gorm.DB, ref StockRef, qty int, reference string) (int, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	repo := s.repo.WithTx(tx)
	ok, err := repo.CompareAndDecrement(ctx, ref, qty)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
	}
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": ref.ProductID,
				"variant_id": ref.VariantID,
				"requested":  qty,
			})
	}
	if err := repo.InsertMovement(ctx, &models.InventoryMovement{
		ProductID: ref.ProductID,
		VariantID: ref.VariantID,
		ChangeQty: -qty,
		Reason:    enums.MovementReasonOrder,
		Reference: reference,
	}); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record inventory movement")
	}
	remaining, err := repo.Stock(ctx, ref)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stock")
	}
	return remaining, nil
}

func (s *service) Increment(ctx context.Context, tx *gorm.DB, ref StockRef, qty int, reason enums.MovementReason, reference string) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !reason.IsValid() || reason == enums.MovementReasonOrder {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid movement reason")
	}
	repo := s.repo.WithTx(tx)
	ok, err := repo.Increment(ctx, ref, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment stock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
	}
	if err := repo.InsertMovement(ctx, &models.InventoryMovement{
		ProductID: ref.ProductID,
		VariantID: ref.VariantID,
		ChangeQty: qty,
		Reason:    reason,
		Reference: reference,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record inventory movement")
	}
	return nil
}

// Restock is Increment in its own transaction, for admin adjustments.
func (s *service) Restock(ctx context.Context, ref StockRef, qty int, reason enums.MovementReason, reference string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.Increment(ctx, tx, ref, qty, reason, reference)
	})
}

func (s *service) ListMovements(ctx context.Context, productID uuid.UUID) ([]models.InventoryMovement, error) {
	rows, err := s.repo.ListMovements(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory movements")
	}
	return rows, nil
}

func (s *service) Reconcile(ctx context.Context, ref StockRef) (*Reconciliation, error) {
	current, err := s.repo.Stock(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stock")
	}
	ledger, err := s.repo.SumMovements(ctx, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum inventory movements")
	}
	return &Reconciliation{
		ProductID:    ref.ProductID,
		VariantID:    ref.VariantID,
		CurrentStock: current,
		LedgerStock:  ledger,
		Consistent:   current == ledger,
	}, nil
}
