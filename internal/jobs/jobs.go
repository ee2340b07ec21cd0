// internal/jobs/jobs.go
package jobs

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mininik08inv/bookstore/internal/store"
)

type Job interface {
	Name() string
	Start(ctx context.Context) error // blocks until ctx.Done (long-running loop)
	Stop()                           // idempotent
}

// Deps is what every job gets handed at construction.
type Deps struct {
	Log   zerolog.Logger
	DB    *gorm.DB
	Store *store.Store
}

type Factory func(deps Deps, raw json.RawMessage) (Job, error)
