package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"revenue-audit/internal/config"
	"revenue-audit/internal/errors"
	"revenue-audit/internal/models"
)

const (
	TableSpend            = "marketing_spend"
	TableEvents           = "funnel_events"
	TableMarketingRevenue = "revenue_marketing"
	TableFinanceRevenue   = "revenue_finance"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	models.DateFormat,
}

// Loader reads the four input tables from CSV. Missing required columns and
// unreadable or empty files are fatal. Malformed data rows are skipped and
// counted, with warnings sampled so a corrupt file cannot flood the log.
type Loader struct {
	cfg    config.LoaderConfig
	logger *slog.Logger
}

func New(cfg config.LoaderConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// LoadAll reads the four tables concurrently and returns the dataset plus one
// load report per table, in fixed table order.
func (l *Loader) LoadAll(ctx context.Context, data config.DataConfig) (*models.Dataset, []models.LoadReport, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	start := time.Now()

	var (
		dataset models.Dataset
		reports [4]models.LoadReport
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		dataset.Spend, reports[0], err = l.loadSpend(ctx, data.SpendPath())
		return err
	})
	g.Go(func() error {
		var err error
		dataset.Events, reports[1], err = l.loadEvents(ctx, data.EventsPath())
		return err
	})
	g.Go(func() error {
		var err error
		dataset.Marketing, reports[2], err = l.loadMarketingRevenue(ctx, data.MarketingRevPath())
		return err
	})
	g.Go(func() error {
		var err error
		dataset.Finance, reports[3], err = l.loadFinanceRevenue(ctx, data.FinanceRevPath())
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	total := len(dataset.Spend) + len(dataset.Events) + len(dataset.Marketing) + len(dataset.Finance)
	l.logger.Info("all tables loaded",
		"rows", total,
		"duration", time.Since(start))

	return &dataset, reports[:], nil
}

// tableReader wraps a CSV file with a normalized header index so rows can be
// addressed by column name regardless of column order in the file.
type tableReader struct {
	table string
	path  string
	file  *os.File
	csv   *csv.Reader
	cols  map[string]int
}

func (l *Loader) openTable(table, path string, required []string) (*tableReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.FileUnreadable(table, path, err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, errors.EmptyTable(table)
		}
		return nil, errors.FileUnreadable(table, path, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, name := range required {
		if _, ok := cols[name]; !ok {
			file.Close()
			return nil, errors.MissingColumn(table, name)
		}
	}

	return &tableReader{table: table, path: path, file: file, csv: reader, cols: cols}, nil
}

func (t *tableReader) Close() error {
	return t.file.Close()
}

// field returns the trimmed value of a named column, or "" when the column is
// absent or the row is too short.
func (t *tableReader) field(row []string, name string) string {
	idx, ok := t.cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (t *tableReader) columns() []string {
	names := make([]string, 0, len(t.cols))
	for name := range t.cols {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// forEachRow streams data rows through parse, skipping rows parse rejects.
// parse reports whether the row produced a record and whether a field had to
// be defaulted.
func (l *Loader) forEachRow(ctx context.Context, tr *tableReader, report *models.LoadReport, parse func(row []string) (defaulted bool, err error)) error {
	warn := rate.Sometimes{First: l.cfg.WarnFirst, Interval: l.cfg.WarnInterval}
	line := 1

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, err := tr.csv.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.Skipped++
			warn.Do(func() {
				l.logger.Warn("skipping malformed row",
					"table", tr.table, "row", line, "error", err)
			})
			continue
		}

		defaulted, err := parse(row)
		if err != nil {
			report.Skipped++
			warn.Do(func() {
				l.logger.Warn("skipping malformed row",
					"table", tr.table, "row", line, "error", err)
			})
			continue
		}
		if defaulted {
			report.Defaulted++
		}
		report.Rows++
	}

	if report.Rows == 0 {
		return errors.EmptyTable(tr.table)
	}

	return nil
}

func (l *Loader) loadSpend(ctx context.Context, path string) ([]models.SpendRecord, models.LoadReport, error) {
	start := time.Now()
	report := models.LoadReport{Table: TableSpend, Path: path}

	tr, err := l.openTable(TableSpend, path, []string{"date", "campaign", "spend"})
	if err != nil {
		return nil, report, err
	}
	defer tr.Close()
	report.Columns = tr.columns()

	var records []models.SpendRecord
	err = l.forEachRow(ctx, tr, &report, func(row []string) (bool, error) {
		date, err := parseDate(tr.field(row, "date"))
		if err != nil {
			return false, err
		}
		campaign := tr.field(row, "campaign")
		if campaign == "" {
			return false, fmt.Errorf("empty campaign")
		}
		amount, err := parseMoney(tr.field(row, "spend"))
		if err != nil {
			return false, fmt.Errorf("parse spend: %w", err)
		}

		defaulted := false
		if amount < 0 {
			amount = 0
			defaulted = true
		}
		currency := tr.field(row, "currency")
		if currency == "" {
			currency = "USD"
		}

		records = append(records, models.SpendRecord{
			Date:     date,
			Channel:  tr.field(row, "channel"),
			Campaign: campaign,
			Amount:   amount,
			Currency: currency,
		})
		return defaulted, nil
	})
	if err != nil {
		return nil, report, err
	}

	l.logger.Info("table loaded",
		"table", TableSpend, "rows", report.Rows, "skipped", report.Skipped,
		"duration", time.Since(start))
	return records, report, nil
}

func (l *Loader) loadEvents(ctx context.Context, path string) ([]models.FunnelEvent, models.LoadReport, error) {
	start := time.Now()
	report := models.LoadReport{Table: TableEvents, Path: path}

	tr, err := l.openTable(TableEvents, path, []string{"user_id", "event_type", "timestamp"})
	if err != nil {
		return nil, report, err
	}
	defer tr.Close()
	report.Columns = tr.columns()

	var records []models.FunnelEvent
	err = l.forEachRow(ctx, tr, &report, func(row []string) (bool, error) {
		userID := tr.field(row, "user_id")
		if userID == "" {
			return false, fmt.Errorf("empty user_id")
		}
		rawKind := tr.field(row, "event_type")
		if rawKind == "" {
			return false, fmt.Errorf("empty event_type")
		}
		ts, err := parseTimestamp(tr.field(row, "timestamp"))
		if err != nil {
			return false, err
		}

		// Unknown kinds are kept; the funnel stage reports them as excluded
		// rather than dropping them silently at load time.
		kind, ok := models.CanonicalEventKind(rawKind)
		if !ok {
			kind = strings.ToLower(rawKind)
		}

		records = append(records, models.FunnelEvent{
			UserID:    userID,
			Channel:   tr.field(row, "channel"),
			Campaign:  tr.field(row, "campaign_id"),
			Kind:      kind,
			Timestamp: ts,
		})
		return false, nil
	})
	if err != nil {
		return nil, report, err
	}

	l.logger.Info("table loaded",
		"table", TableEvents, "rows", report.Rows, "skipped", report.Skipped,
		"duration", time.Since(start))
	return records, report, nil
}

func (l *Loader) loadMarketingRevenue(ctx context.Context, path string) ([]models.MarketingRevenueRecord, models.LoadReport, error) {
	start := time.Now()
	report := models.LoadReport{Table: TableMarketingRevenue, Path: path}

	tr, err := l.openTable(TableMarketingRevenue, path, []string{"date", "campaign", "reported_revenue"})
	if err != nil {
		return nil, report, err
	}
	defer tr.Close()
	report.Columns = tr.columns()

	var records []models.MarketingRevenueRecord
	err = l.forEachRow(ctx, tr, &report, func(row []string) (bool, error) {
		date, err := parseDate(tr.field(row, "date"))
		if err != nil {
			return false, err
		}
		campaign := tr.field(row, "campaign")
		if campaign == "" {
			return false, fmt.Errorf("empty campaign")
		}
		reported, err := parseMoney(tr.field(row, "reported_revenue"))
		if err != nil {
			return false, fmt.Errorf("parse reported_revenue: %w", err)
		}

		rec := models.MarketingRevenueRecord{
			Date:     date,
			Campaign: campaign,
			UserID:   tr.field(row, "user_id"),
			Reported: reported,
		}
		if raw := tr.field(row, "report_date"); raw != "" {
			if reportDate, err := parseDate(raw); err == nil {
				rec.ReportDate = reportDate
			}
		}

		records = append(records, rec)
		return false, nil
	})
	if err != nil {
		return nil, report, err
	}

	l.logger.Info("table loaded",
		"table", TableMarketingRevenue, "rows", report.Rows, "skipped", report.Skipped,
		"duration", time.Since(start))
	return records, report, nil
}

func (l *Loader) loadFinanceRevenue(ctx context.Context, path string) ([]models.FinanceRevenueRecord, models.LoadReport, error) {
	start := time.Now()
	report := models.LoadReport{Table: TableFinanceRevenue, Path: path}

	tr, err := l.openTable(TableFinanceRevenue, path, []string{"date", "invoice_id", "actual_revenue"})
	if err != nil {
		return nil, report, err
	}
	defer tr.Close()
	report.Columns = tr.columns()

	var records []models.FinanceRevenueRecord
	err = l.forEachRow(ctx, tr, &report, func(row []string) (bool, error) {
		date, err := parseDate(tr.field(row, "date"))
		if err != nil {
			return false, err
		}
		invoiceID := tr.field(row, "invoice_id")
		if invoiceID == "" {
			return false, fmt.Errorf("empty invoice_id")
		}
		actual, err := parseMoney(tr.field(row, "actual_revenue"))
		if err != nil {
			return false, fmt.Errorf("parse actual_revenue: %w", err)
		}

		records = append(records, models.FinanceRevenueRecord{
			Date:          date,
			InvoiceID:     invoiceID,
			Actual:        actual,
			PaymentStatus: tr.field(row, "payment_status"),
			UserID:        tr.field(row, "user_id"),
		})
		return false, nil
	})
	if err != nil {
		return nil, report, err
	}

	l.logger.Info("table loaded",
		"table", TableFinanceRevenue, "rows", report.Rows, "skipped", report.Skipped,
		"duration", time.Since(start))
	return records, report, nil
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(models.DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return t, nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func parseMoney(value string) (float64, error) {
	return strconv.ParseFloat(value, 64)
}
