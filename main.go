package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	conf "github.com/mininik08inv/bookstore/internal/config"
	"github.com/mininik08inv/bookstore/internal/db"
	"github.com/mininik08inv/bookstore/internal/jobs"
	_ "github.com/mininik08inv/bookstore/internal/jobs/catalogfeed" // job registration
	"github.com/mininik08inv/bookstore/internal/logs"
	"github.com/mininik08inv/bookstore/internal/store"
)

var ver = "1.0.0"

func main() {
	appDir := mustAppDataDir("bookstore")
	log := logs.New(filepath.Join(appDir, "app.log"), true)

	cfgPath := filepath.Join(appDir, "config.json")
	cfg, firstRun, err := conf.LoadOrCreate(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	if firstRun {
		log.Info().Msgf("default config written: %s", cfgPath)
	}

	dsn := cfg.Database.DSN
	if cfg.Database.Driver == "sqlite" && !filepath.IsAbs(dsn) {
		dsn = filepath.Join(appDir, dsn)
	}
	dbh, err := db.Open(cfg.Database.Driver, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("DB open error")
	}
	if err := dbh.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("DB migrate error")
	}
	log.Info().Str("driver", cfg.Database.Driver).Str("dsn", dsn).Msg("DB ready")
	sqlDB, _ := dbh.DB.DB()
	defer sqlDB.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st := store.New(log, dbh.DB, store.Config{
		FirstStep:     cfg.FirstStep,
		TerminalSteps: cfg.TerminalSteps,
	})
	if err := st.EnsureSteps(ctx, cfg.DefaultSteps...); err != nil {
		log.Fatal().Err(err).Msg("step seed error")
	}

	runner := jobs.NewRunner(log, cfg, jobs.Deps{Log: log, DB: dbh.DB, Store: st})

	fmt.Println("Bookstore CLI", ver)
	fmt.Println("Commands: start | stop | status <buyId> | steps <buyId> | advance <buyId> <step> | eta <buyId> | quit")
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "start":
			if err := runner.Start(ctx); err != nil {
				fmt.Println("start error:", err)
				continue
			}
			fmt.Println("feed jobs running")
		case "stop":
			runner.Stop()
			fmt.Println("feed jobs stopped")
		case "status":
			buyID, ok := argID(fields, 1)
			if !ok {
				continue
			}
			name, err := st.CurrentStatus(ctx, buyID)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("buy %d: %s\n", buyID, name)
		case "steps":
			buyID, ok := argID(fields, 1)
			if !ok {
				continue
			}
			recs, err := st.StepsForBuy(ctx, buyID)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, r := range recs {
				end := "open"
				if r.End != nil {
					end = r.End.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("  %-12s %s .. %s\n", r.Name, r.Beg.Format("2006-01-02 15:04:05"), end)
			}
		case "advance":
			buyID, ok := argID(fields, 1)
			if !ok || len(fields) < 3 {
				fmt.Println("usage: advance <buyId> <step>")
				continue
			}
			if _, err := st.AdvanceStep(ctx, buyID, fields[2]); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("buy %d advanced to %s\n", buyID, fields[2])
		case "eta":
			buyID, ok := argID(fields, 1)
			if !ok {
				continue
			}
			eta, err := st.EstimatedDeliveryDate(ctx, buyID)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("buy %d: estimated delivery %s\n", buyID, eta.Format("2006-01-02"))
		case "quit", "exit":
			runner.Stop()
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}

		if errors.Is(ctx.Err(), context.Canceled) {
			runner.Stop()
			return
		}
	}
}

func argID(fields []string, idx int) (uint, bool) {
	if len(fields) <= idx {
		fmt.Println("missing id argument")
		return 0, false
	}
	v, err := strconv.ParseUint(fields[idx], 10, 32)
	if err != nil {
		fmt.Println("bad id:", fields[idx])
		return 0, false
	}
	return uint(v), true
}

func mustAppDataDir(app string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		panic(err)
	}
	return dir
}
