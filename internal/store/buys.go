package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mininik08inv/bookstore/internal/db"
)

// LineItem is one (book, quantity) pair of a purchase request.
type LineItem struct {
	BookID   uint
	Quantity int
}

// StepRecord is one row of a purchase's fulfillment history, with the stage
// name resolved.
type StepRecord struct {
	Name string     `gorm:"column:name_step"`
	Beg  time.Time  `gorm:"column:date_step_beg"`
	End  *time.Time `gorm:"column:date_step_end"`
}

// CreateBuy places a purchase: decrements stock per line item, inserts the
// buy, the line items with the price frozen from the current catalog, and
// the initial open step. Everything commits as one transaction; an
// insufficient line leaves no trace of the whole purchase.
func (s *Store) CreateBuy(ctx context.Context, clientID uint, items []LineItem, description string) (*db.Buy, error) {
	if len(items) == 0 {
		return nil, &ValidationError{Field: "items", Value: len(items), Reason: "purchase needs at least one line item"}
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, &ValidationError{Field: "quantity", Value: it.Quantity, Reason: "must be at least 1"}
		}
	}

	now := s.now()
	var buy db.Buy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client db.Client
		if err := tx.Where("client_id = ?", clientID).Take(&client).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "client", ID: clientID}
			}
			return err
		}

		var first db.Step
		if err := tx.Where("name_step = ?", s.firstStep).Take(&first).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "step", ID: s.firstStep}
			}
			return err
		}

		buy = db.Buy{
			BuyDescription: description,
			ClientID:       clientID,
			CreatedAt:      now,
		}
		if err := tx.Create(&buy).Error; err != nil {
			return err
		}

		for _, it := range items {
			if _, err := adjustStockTx(tx, it.BookID, -it.Quantity); err != nil {
				return err
			}
			var book db.Book
			if err := tx.Where("book_id = ?", it.BookID).Take(&book).Error; err != nil {
				return err
			}
			line := db.BuyBook{
				BuyID:  buy.BuyID,
				BookID: it.BookID,
				Amount: it.Quantity,
				Price:  book.Price, // snapshot, immune to later catalog changes
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}

		initial := db.BuyStep{
			BuyID:       buy.BuyID,
			StepID:      first.StepID,
			DateStepBeg: now,
		}
		return tx.Create(&initial).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("buy_id", buy.BuyID).Uint("client_id", clientID).
		Int("lines", len(items)).Msg("buy created")
	return &buy, nil
}

// AdvanceStep closes the purchase's open step and opens the named one. A
// terminal target is inserted already closed, so a finished purchase has no
// open step left.
func (s *Store) AdvanceStep(ctx context.Context, buyID uint, stepName string) (*db.BuyStep, error) {
	stepName = strings.TrimSpace(stepName)
	now := s.now()

	var created db.BuyStep
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var buy db.Buy
		if err := tx.Where("buy_id = ?", buyID).Take(&buy).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "buy", ID: buyID}
			}
			return err
		}

		var next db.Step
		if err := tx.Where("name_step = ?", stepName).Take(&next).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &InvalidTransitionError{BuyID: buyID, To: stepName, Reason: "unknown step"}
			}
			return err
		}

		var open db.BuyStep
		err := tx.Where("buy_id = ? AND date_step_end IS NULL", buyID).Take(&open).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No open step: either the buy reached a terminal stage, or
			// its history is missing, which is an invariant violation.
			last, lerr := lastStepRecord(tx, buyID)
			if lerr != nil {
				return lerr
			}
			if last == nil {
				return &NotFoundError{Entity: "open buy_step", ID: buyID}
			}
			return &InvalidTransitionError{BuyID: buyID, From: last.Name, To: stepName,
				Reason: "buy is in a terminal state"}
		}
		if err != nil {
			return err
		}

		var current db.Step
		if err := tx.Where("step_id = ?", open.StepID).Take(&current).Error; err != nil {
			return err
		}
		if s.terminal[current.NameStep] {
			return &InvalidTransitionError{BuyID: buyID, From: current.NameStep, To: stepName,
				Reason: "buy is in a terminal state"}
		}

		// Close the open step. End never precedes begin, even with a
		// skewed injected clock.
		end := now
		if end.Before(open.DateStepBeg) {
			end = open.DateStepBeg
		}
		if err := tx.Model(&db.BuyStep{}).
			Where("buy_step_id = ?", open.BuyStepID).
			Update("date_step_end", end).Error; err != nil {
			return err
		}

		created = db.BuyStep{
			BuyID:       buyID,
			StepID:      next.StepID,
			DateStepBeg: end,
		}
		if s.terminal[stepName] {
			created.DateStepEnd = &end
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("buy_id", buyID).Str("step", stepName).Msg("buy advanced")
	return &created, nil
}

// CurrentStatus names the open step, or the most recent one when the buy is
// in a terminal state.
func (s *Store) CurrentStatus(ctx context.Context, buyID uint) (string, error) {
	gdb := s.db.WithContext(ctx)

	var buy db.Buy
	if err := gdb.Where("buy_id = ?", buyID).Take(&buy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", &NotFoundError{Entity: "buy", ID: buyID}
		}
		return "", err
	}

	var rec StepRecord
	err := gdb.Model(&db.BuyStep{}).
		Select("steps.name_step, buy_steps.date_step_beg, buy_steps.date_step_end").
		Joins("JOIN steps ON steps.step_id = buy_steps.step_id").
		Where("buy_steps.buy_id = ? AND buy_steps.date_step_end IS NULL", buyID).
		Take(&rec).Error
	if err == nil {
		return rec.Name, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	last, err := lastStepRecord(gdb, buyID)
	if err != nil {
		return "", err
	}
	if last == nil {
		return "", &NotFoundError{Entity: "buy_step", ID: buyID}
	}
	return last.Name, nil
}

// StepsForBuy returns the full fulfillment history in order.
func (s *Store) StepsForBuy(ctx context.Context, buyID uint) ([]StepRecord, error) {
	var recs []StepRecord
	err := s.db.WithContext(ctx).Model(&db.BuyStep{}).
		Select("steps.name_step, buy_steps.date_step_beg, buy_steps.date_step_end").
		Joins("JOIN steps ON steps.step_id = buy_steps.step_id").
		Where("buy_steps.buy_id = ?", buyID).
		Order("buy_steps.buy_step_id").
		Scan(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func lastStepRecord(tx *gorm.DB, buyID uint) (*StepRecord, error) {
	var rec StepRecord
	err := tx.Model(&db.BuyStep{}).
		Select("steps.name_step, buy_steps.date_step_beg, buy_steps.date_step_end").
		Joins("JOIN steps ON steps.step_id = buy_steps.step_id").
		Where("buy_steps.buy_id = ?", buyID).
		Order("buy_steps.buy_step_id DESC").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// EstimatedDeliveryDate adds the client's city latency to the shipping
// moment: the begin of the latest "shipped" step when one exists, otherwise
// the buy's creation time. A client without a city has unknown latency,
// which is an error and never treated as zero days.
func (s *Store) EstimatedDeliveryDate(ctx context.Context, buyID uint) (time.Time, error) {
	gdb := s.db.WithContext(ctx)

	var buy db.Buy
	if err := gdb.Where("buy_id = ?", buyID).Take(&buy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, &NotFoundError{Entity: "buy", ID: buyID}
		}
		return time.Time{}, err
	}

	var client db.Client
	if err := gdb.Where("client_id = ?", buy.ClientID).Take(&client).Error; err != nil {
		return time.Time{}, err
	}
	if client.CityID == nil {
		return time.Time{}, &NotFoundError{Entity: "city for client", ID: buy.ClientID}
	}
	var city db.City
	if err := gdb.Where("city_id = ?", *client.CityID).Take(&city).Error; err != nil {
		return time.Time{}, err
	}

	base := buy.CreatedAt
	var shipped StepRecord
	err := gdb.Model(&db.BuyStep{}).
		Select("steps.name_step, buy_steps.date_step_beg, buy_steps.date_step_end").
		Joins("JOIN steps ON steps.step_id = buy_steps.step_id").
		Where("buy_steps.buy_id = ? AND steps.name_step = ?", buyID, "shipped").
		Order("buy_steps.buy_step_id DESC").
		Take(&shipped).Error
	if err == nil {
		base = shipped.Beg
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, err
	}

	return base.AddDate(0, 0, city.DeliveryDays), nil
}
