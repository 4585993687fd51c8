package sheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/api/sheets/v4"

	"github.com/jqlim/expense-bot/internal/common"
	"github.com/jqlim/expense-bot/internal/model"
)

// definitionsRange covers the reference columns: categories, payment
// methods, persons, and the FX currency/rate pair.
const definitionsRange = "A:E"

type definitionsCache struct {
	mu      sync.Mutex
	defs    model.Definitions
	fetched time.Time
}

// Definitions implements the service.DefinitionsSource interface. Results
// are cached for the configured TTL so the confirm flow does not hammer the
// API on every message.
func (c *Client) Definitions(ctx context.Context) (model.Definitions, error) {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	if c.config.CacheTTL > 0 && !c.cache.fetched.IsZero() && time.Since(c.cache.fetched) < c.config.CacheTTL {
		return c.cache.defs, nil
	}

	var resp *sheets.ValueRange
	err := common.WithRetry(ctx, func() error {
		var apiErr error
		readRange := fmt.Sprintf("'%s'!%s", c.config.DefinitionsTab, definitionsRange)
		resp, apiErr = c.service.Spreadsheets.Values.
			Get(c.config.SpreadsheetID, readRange).
			MajorDimension("COLUMNS").
			Context(ctx).
			Do()
		return apiErr
	}, c.retryOptions())
	if err != nil {
		return model.Definitions{}, fmt.Errorf("%w: %v", common.ErrDefinitionsUnavailable, err)
	}

	defs := parseDefinitions(resp.Values)
	c.cache.defs = defs
	c.cache.fetched = time.Now()

	c.logger.Debug("definitions refreshed",
		"categories", len(defs.Categories),
		"cards", len(defs.Cards),
		"persons", len(defs.Persons),
		"fx_rates", len(defs.FX))

	return defs, nil
}

// InvalidateDefinitions drops the cached lists so the next read hits the API.
func (c *Client) InvalidateDefinitions() {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()
	c.cache.fetched = time.Time{}
}

// parseDefinitions turns the COLUMNS-major tab contents into reference
// lists. The first cell of every column is a header and is skipped; name
// columns come back sorted while FX rows keep sheet order.
func parseDefinitions(columns [][]any) model.Definitions {
	defs := model.Definitions{
		Categories: columnStrings(columns, 0),
		Cards:      columnStrings(columns, 1),
		Persons:    columnStrings(columns, 2),
	}
	sort.Strings(defs.Categories)
	sort.Strings(defs.Cards)
	sort.Strings(defs.Persons)

	currencies := columnStrings(columns, 3)
	rates := columnStrings(columns, 4)
	for i, currency := range currencies {
		if i >= len(rates) {
			break
		}
		rate, err := decimal.NewFromString(rates[i])
		if err != nil {
			continue
		}
		defs.FX = append(defs.FX, model.FXRate{
			Currency: strings.ToUpper(currency),
			Rate:     rate,
		})
	}

	return defs
}

// columnStrings extracts the non-empty cells of one column, skipping the
// header row.
func columnStrings(columns [][]any, idx int) []string {
	if idx >= len(columns) || len(columns[idx]) < 2 {
		return nil
	}
	out := make([]string, 0, len(columns[idx])-1)
	for _, cell := range columns[idx][1:] {
		s := strings.TrimSpace(toString(cell))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toString(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
