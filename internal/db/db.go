package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Handle struct {
	DB     *gorm.DB
	Driver string
	DSN    string
}

// Open connects using the configured driver. The sqlite driver is the
// pure-Go one, so the same binary works without cgo.
func Open(driver, dsn string) (*Handle, error) {
	var dial gorm.Dialector
	switch driver {
	case "sqlite", "":
		dial = sqlite.Open(dsn)
	case "postgres":
		dial = postgres.Open(dsn)
	case "mysql":
		dial = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}

	gdb, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		// Logger: logger.Default.LogMode(logger.Info), // verbose SQL if needed
	})
	if err != nil {
		return nil, err
	}
	return &Handle{DB: gdb, Driver: driver, DSN: dsn}, nil
}
