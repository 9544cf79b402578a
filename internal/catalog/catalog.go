// Package catalog seeds the restaurant directory from a CSV file. Each
// record is `name,menus,address` where the menus field holds
// semicolon-separated `menuName:price[:afterwork]` entries. Malformed
// records are logged and skipped; loading never fails on bad data.
package catalog

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/campuseats/ordering/internal/domain"
	"github.com/campuseats/ordering/internal/restaurant"
)

// Load reads the CSV file at path into the directory and returns the
// number of restaurants registered.
func Load(path string, dir *restaurant.Directory, logger *slog.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f, dir, logger)
}

// Parse reads CSV records from r into the directory.
func Parse(r io.Reader, dir *restaurant.Directory, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	loaded := 0
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed catalog line", "line", line, "error", err)
			continue
		}
		if len(record) != 3 {
			logger.Warn("skipping catalog line with wrong field count", "line", line, "fields", len(record))
			continue
		}

		name := strings.TrimSpace(record[0])
		address := strings.TrimSpace(record[2])
		if name == "" {
			logger.Warn("skipping catalog line without a restaurant name", "line", line)
			continue
		}

		rest, err := dir.Register(name, address)
		if err != nil {
			logger.Warn("skipping restaurant", "line", line, "name", name, "error", err)
			continue
		}
		for _, entry := range strings.Split(record[1], ";") {
			menu, err := parseMenu(entry)
			if err != nil {
				logger.Warn("skipping menu entry", "line", line, "entry", entry, "error", err)
				continue
			}
			if err := rest.AddMenu(menu); err != nil {
				logger.Warn("skipping menu entry", "line", line, "entry", entry, "error", err)
			}
		}
		loaded++
	}
	return loaded, nil
}

func parseMenu(entry string) (*domain.Menu, error) {
	parts := strings.Split(strings.TrimSpace(entry), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, domain.ErrInvalidMenu
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, err
	}
	afterWork := len(parts) == 3 && strings.EqualFold(strings.TrimSpace(parts[2]), "afterwork")
	return domain.NewMenu(strings.TrimSpace(parts[0]), price, afterWork)
}
