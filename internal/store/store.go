// Package store is the invariant-enforcing service layer over the bookstore
// schema: catalog upserts, stock accounting, and the purchase fulfillment
// step machine. Every multi-row mutation runs in a single transaction.
package store

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Config struct {
	// FirstStep is the stage a fresh Buy enters (default "placed").
	FirstStep string
	// TerminalSteps are absorbing stages; no transition leaves them
	// (default "delivered", "cancelled").
	TerminalSteps []string
	// Clock supplies every timestamp the store writes, so tests can pin
	// time. Defaults to time.Now.
	Clock func() time.Time
}

type Store struct {
	log zerolog.Logger
	db  *gorm.DB

	now       func() time.Time
	firstStep string
	terminal  map[string]bool
}

func New(log zerolog.Logger, gdb *gorm.DB, cfg Config) *Store {
	if cfg.FirstStep == "" {
		cfg.FirstStep = "placed"
	}
	if len(cfg.TerminalSteps) == 0 {
		cfg.TerminalSteps = []string{"delivered", "cancelled"}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	terminal := make(map[string]bool, len(cfg.TerminalSteps))
	for _, name := range cfg.TerminalSteps {
		terminal[name] = true
	}
	return &Store{
		log:       log,
		db:        gdb,
		now:       cfg.Clock,
		firstStep: cfg.FirstStep,
		terminal:  terminal,
	}
}
