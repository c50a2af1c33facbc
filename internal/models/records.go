package models

import (
	"strings"
	"time"
)

// DateFormat is the calendar-date layout used by all four input tables and by
// every rendered report.
const DateFormat = "2006-01-02"

// Day truncates t to UTC midnight. Every date key is normalized through it so
// rows carrying timestamps land on the same calendar day as plain dates.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Canonical funnel event kinds, in stage order.
const (
	EventClick    = "click"
	EventSignup   = "signup"
	EventCheckout = "checkout"
	EventPurchase = "purchase"
)

// CanonicalEventKind maps a raw event kind to its canonical stage name.
// Datasets exported from different trackers use page_view/add_to_cart for the
// first two stages. Unknown kinds return ok=false and are excluded from the
// funnel, never an error.
func CanonicalEventKind(kind string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case EventClick, "page_view":
		return EventClick, true
	case EventSignup, "add_to_cart":
		return EventSignup, true
	case EventCheckout:
		return EventCheckout, true
	case EventPurchase:
		return EventPurchase, true
	default:
		return "", false
	}
}

// SpendRecord is one row of marketing_spend.csv: money spent on a campaign on
// one day. Amount is never negative after load; negative inputs are clamped
// and counted as defaulted rows.
type SpendRecord struct {
	Date     time.Time
	Channel  string
	Campaign string
	Amount   float64
	Currency string
}

// FunnelEvent is one row of funnel_events.csv. A user may legitimately or
// erroneously appear several times per stage; duplicates are a signal for the
// anomaly detector, not a load constraint.
type FunnelEvent struct {
	UserID    string
	Channel   string
	Campaign  string
	Kind      string
	Timestamp time.Time
}

// Date returns the event's UTC calendar day.
func (e FunnelEvent) Date() time.Time { return Day(e.Timestamp) }

// MarketingRevenueRecord is one row of revenue_marketing.csv: revenue the
// marketing team attributes to a campaign for a day.
type MarketingRevenueRecord struct {
	Date       time.Time
	Campaign   string
	UserID     string
	Reported   float64
	ReportDate time.Time
}

// FinanceRevenueRecord is one row of revenue_finance.csv: invoice-backed
// revenue. It joins to marketing data by date only; there is no shared
// transaction key, which is exactly the ambiguity the audit exposes.
type FinanceRevenueRecord struct {
	Date          time.Time
	InvoiceID     string
	Actual        float64
	PaymentStatus string
	UserID        string
}

// Dataset holds the four loaded tables. It is never mutated after the loader
// returns; every engine reads it concurrently without synchronization.
type Dataset struct {
	Spend     []SpendRecord
	Events    []FunnelEvent
	Marketing []MarketingRevenueRecord
	Finance   []FinanceRevenueRecord
}

// LoadReport describes the outcome of loading one table.
type LoadReport struct {
	Table     string   `json:"table"`
	Path      string   `json:"path"`
	Rows      int      `json:"rows"`
	Skipped   int      `json:"skipped"`
	Defaulted int      `json:"defaulted"`
	Columns   []string `json:"columns"`
}
