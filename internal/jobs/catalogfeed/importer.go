// Package catalogfeed ingests supplier catalog files. Suppliers drop
// feed_*.xml exports into a watch directory; each file is deduplicated by
// name and checksum, parsed with charset detection, and its rows upserted
// into the catalog.
package catalogfeed

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html/charset"
	"gorm.io/gorm"

	"github.com/mininik08inv/bookstore/internal/db"
	"github.com/mininik08inv/bookstore/internal/jobs"
	"github.com/mininik08inv/bookstore/internal/store"
)

type Config struct {
	WatchDir string `json:"watch_dir"` // e.g. ~/bookstore/feeds
	PollSec  int    `json:"poll_sec"`  // 5-10s in dev
}

type Importer struct {
	log zerolog.Logger
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	db     *gorm.DB
	store  *store.Store
}

type xmlBook struct {
	Title  string `xml:"title"`
	Author string `xml:"author"`
	Genre  string `xml:"genre"`
	Price  string `xml:"price"`  // may use a comma separator, so string
	Amount string `xml:"amount"` // may be empty, so string
}

func (i *Importer) Name() string { return "catalogfeed" }

func (i *Importer) Start(ctx context.Context) error {
	i.ctx, i.cancel = context.WithCancel(ctx)
	i.log.Info().Str("dir", i.cfg.WatchDir).Msg("start")

	dir := expandHome(i.cfg.WatchDir)
	ticker := time.NewTicker(i.interval())
	defer ticker.Stop()

	// first pass right away
	i.scanOnce(dir)

	for {
		select {
		case <-i.ctx.Done():
			i.log.Info().Msg("stop")
			return nil
		case <-ticker.C:
			i.scanOnce(dir)
		}
	}
}

func (i *Importer) Stop() {
	if i.cancel != nil {
		i.cancel()
	}
}

func (i *Importer) interval() time.Duration {
	if i.cfg.PollSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(i.cfg.PollSec) * time.Second
}

func (i *Importer) scanOnce(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		i.log.Error().Err(err).Str("dir", dir).Msg("cannot read watch dir")
		return
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "feed_") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		full := filepath.Join(dir, name)

		feedID, already, err := i.registerFile(full, name)
		if err != nil {
			i.log.Error().Err(err).Str("file", name).Msg("file registration failed")
			continue
		}

		if already {
			// reprocess anything that never reached done
			var rec db.FeedFile
			if err := i.db.Where("feed_id = ?", feedID).Take(&rec).Error; err == nil && rec.Status == 1 {
				i.log.Debug().Str("file", name).Msg("already done, skipping")
				continue
			}
			i.log.Warn().Str("file", name).Uint("feed_id", feedID).Msg("known file not done, reprocessing")
		}

		if err := i.processFile(feedID, full); err != nil {
			i.log.Error().Err(err).Str("file", name).Uint("feed_id", feedID).Msg("feed processing failed")
			_ = i.db.Model(&db.FeedFile{}).Where("feed_id = ?", feedID).
				Updates(map[string]any{"status": 2, "last_error": err.Error()})
			continue
		}

		now := time.Now()
		_ = i.db.Model(&db.FeedFile{}).Where("feed_id = ?", feedID).
			Updates(map[string]any{"status": 1, "processed_at": now})

		i.log.Info().Str("file", name).Uint("feed_id", feedID).Msg("feed processed OK")
	}
}

func (i *Importer) registerFile(fullPath, name string) (uint, bool, error) {
	fi, err := os.Stat(fullPath)
	if err != nil {
		return 0, false, err
	}

	h, err := fileSHA256(fullPath)
	if err != nil {
		return 0, false, err
	}

	// idempotent by checksum or name
	var existing db.FeedFile
	if err := i.db.
		Where("sha256 = ? OR filename = ?", h, name).
		Take(&existing).Error; err == nil {
		return existing.FeedID, true, nil
	}

	rec := db.FeedFile{
		Filename:  name,
		SHA256:    h,
		SizeBytes: fi.Size(),
		Status:    0,
	}
	if err := i.db.Create(&rec).Error; err != nil {
		return 0, false, err
	}
	return rec.FeedID, false, nil
}

func (i *Importer) processFile(feedID uint, fullPath string) error {
	f, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	dec := xml.NewDecoder(br)
	dec.CharsetReader = func(cs string, in io.Reader) (io.Reader, error) {
		return charset.NewReaderLabel(normalizeCharset(cs), in)
	}

	upserted, skipped := 0, 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		se, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(se.Name.Local, "book") {
			continue
		}

		var row xmlBook
		if err := dec.DecodeElement(&row, &se); err != nil {
			return err
		}

		price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row.Price), ",", "."))
		if err != nil {
			i.log.Warn().Str("title", row.Title).Str("price", row.Price).Msg("bad price, row skipped")
			skipped++
			continue
		}
		if _, err := i.store.UpsertBook(i.ctx, row.Title, row.Author, row.Genre, price, atoi(row.Amount)); err != nil {
			i.log.Warn().Err(err).Str("title", row.Title).Msg("row rejected")
			skipped++
			continue
		}
		upserted++
	}

	i.log.Info().
		Uint("feed_id", feedID).
		Int("books_upserted", upserted).
		Int("rows_skipped", skipped).
		Msg("feed parsed")
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// normalizeCharset maps feed-specific labels to names charset.NewReaderLabel knows
func normalizeCharset(cs string) string {
	c := strings.TrimSpace(strings.ToLower(cs))
	switch c {
	case "latin ii", "latin-2", "latin2", "iso8859-2", "iso_8859-2":
		return "iso-8859-2"
	case "cp1250", "windows1250", "win-1250":
		return "windows-1250"
	default:
		return c
	}
}

func atoi(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}

func factory(deps jobs.Deps, raw json.RawMessage) (jobs.Job, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &Importer{log: deps.Log, cfg: cfg, db: deps.DB, store: deps.Store}, nil
}

func init() {
	jobs.Register("catalogfeed", factory)
}
