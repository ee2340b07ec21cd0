package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mininik08inv/bookstore/internal/db"
)

// UpsertStep registers a fulfillment stage name. Stages live in the steps
// table, not in code, so deployments can add their own without a migration.
func (s *Store) UpsertStep(ctx context.Context, name string) (*db.Step, error) {
	return upsertStepTx(s.db.WithContext(ctx), name)
}

func upsertStepTx(tx *gorm.DB, name string) (*db.Step, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "step name", Value: name, Reason: "must not be blank"}
	}
	var st db.Step
	if err := tx.Where(&db.Step{NameStep: name}).FirstOrCreate(&st).Error; err != nil {
		return nil, fmt.Errorf("upsert step %q: %w", name, err)
	}
	return &st, nil
}

// EnsureSteps seeds the stage catalog, typically at startup from config.
func (s *Store) EnsureSteps(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := s.UpsertStep(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// DeleteStep removes a stage definition unless fulfillment history uses it.
func (s *Store) DeleteStep(ctx context.Context, stepID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.BuyStep{}).Where("step_id = ?", stepID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Entity: "step", Field: "step_id", Value: stepID,
				Reason: fmt.Sprintf("referenced by %d buy steps", n)}
		}
		res := tx.Delete(&db.Step{}, "step_id = ?", stepID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "step", ID: stepID}
		}
		return nil
	})
}
