package db

import (
	"fmt"
)

// Migrate creates or updates the schema. AutoMigrate handles columns and
// indexes from the model tags; sqlite additionally needs foreign keys
// switched on per connection or the RESTRICT constraints are silent no-ops.
func (h *Handle) Migrate() error {
	gdb := h.DB

	if h.Driver == "sqlite" || h.Driver == "" {
		if err := gdb.Exec(`PRAGMA foreign_keys = ON;`).Error; err != nil {
			return fmt.Errorf("enable foreign_keys: %w", err)
		}
	}

	if err := gdb.AutoMigrate(
		&Genre{},
		&Author{},
		&Book{},
		&City{},
		&Client{},
		&Buy{},
		&Step{},
		&BuyStep{},
		&BuyBook{},
		&FeedFile{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}

	return nil
}
