package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Fields is the parser's best-effort extraction from raw OCR text. Every
// field is independently optional; nil means the heuristics found nothing.
type Fields struct {
	StoreName       *string `json:"store_name,omitempty"`
	TotalAmount     *int64  `json:"total_amount,omitempty"`
	TransactionDate *string `json:"transaction_date,omitempty"`
	TransactionTime *string `json:"transaction_time,omitempty"`
}

// Parser turns raw receipt text (newline-separated, mixed Korean/English,
// arbitrary layout) into structured fields. It is a pure transformation with
// one documented exception: when no date-shaped substring exists, the current
// calendar date is used so every receipt stays sortable. The clock is
// injectable for that reason.
type Parser struct {
	now func() time.Time
}

func New() *Parser {
	return &Parser{now: time.Now}
}

// NewWithClock returns a Parser whose today-fallback uses the given clock.
func NewWithClock(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

var (
	// Merchant indicators: corporate-entity marker, store-type suffix, and
	// explicit merchant labels printed by Korean POS terminals.
	reCorpMarker  = regexp.MustCompile(`\(주\)|㈜|주식회사`)
	reStoreSuffix = regexp.MustCompile(`(?:점|마트|스토어)\s*$`)
	reStoreLabel  = regexp.MustCompile(`(?:상호|가맹점명?)\s*[:：]?`)
	// Lines carrying the proprietor marker name a person, not the business.
	reOwnerMarker = regexp.MustCompile(`대표자?`)

	// Everything that is not a Korean/Latin letter, digit, or whitespace is
	// stripped from store-name candidates.
	reNameStrip = regexp.MustCompile(`[^0-9A-Za-z가-힣\s]+`)

	// Total-amount keyword immediately followed by a digit run. First match
	// wins; magnitude-based guessing is only the fallback.
	reKeywordAmount = regexp.MustCompile(`(?i)(?:받을금액|판매합계|결제금액|총액|총계|합계|total|sum)\s*[:：]?\s*₩?\s*([0-9][0-9,]*)`)
	reNumberRun     = regexp.MustCompile(`[0-9][0-9,]*`)
)

// dateRule pairs a matcher with a builder. Rules are tried in order; a match
// whose builder rejects it (implausible year, month/day out of range) is
// skipped and the next rule is tried, so "no match" and "bad match" are never
// conflated.
type dateRule struct {
	re    *regexp.Regexp
	build func(p *Parser, m []string) (date, clock string, ok bool)
}

var dateRules = []dateRule{
	{
		// 4-digit year first, optionally followed by HH:MM:SS.
		re: regexp.MustCompile(`(\d{4})[-./](\d{1,2})[-./](\d{1,2})(?:\s+(\d{2}:\d{2}:\d{2}))?`),
		build: func(p *Parser, m []string) (string, string, bool) {
			y, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			d, _ := strconv.Atoi(m[3])
			if !p.plausibleYear(y) || !validMonthDay(mo, d) {
				return "", "", false
			}
			return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), m[4], true
		},
	},
	{
		// Month/day first with a trailing 4-digit year.
		re: regexp.MustCompile(`(\d{1,2})[-./](\d{1,2})[-./](\d{4})`),
		build: func(p *Parser, m []string) (string, string, bool) {
			mo, _ := strconv.Atoi(m[1])
			d, _ := strconv.Atoi(m[2])
			y, _ := strconv.Atoi(m[3])
			if !p.plausibleYear(y) || !validMonthDay(mo, d) {
				return "", "", false
			}
			return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), "", true
		},
	},
	{
		// 2-digit year first; expanded into the 2000s.
		re: regexp.MustCompile(`(\d{2})[-./](\d{1,2})[-./](\d{1,2})`),
		build: func(p *Parser, m []string) (string, string, bool) {
			yy, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			d, _ := strconv.Atoi(m[3])
			if !validMonthDay(mo, d) {
				return "", "", false
			}
			return fmt.Sprintf("%04d-%02d-%02d", 2000+yy, mo, d), "", true
		},
	},
}

// Parse extracts store name, total amount, and transaction date/time from raw
// OCR text. It never fails: unrecognizable fields are simply absent. Empty or
// whitespace-only input yields zero fields (no today-fallback either, so an
// upload with no recognized text stays fully manual).
func (p *Parser) Parse(rawText string) Fields {
	var f Fields
	if strings.TrimSpace(rawText) == "" {
		return f
	}

	lines := nonEmptyLines(rawText)

	if name, ok := storeName(lines); ok {
		f.StoreName = &name
	}
	if amount, ok := totalAmount(rawText); ok {
		f.TotalAmount = &amount
	}
	if date, clock, ok := p.transactionDate(rawText); ok {
		f.TransactionDate = &date
		if clock != "" {
			f.TransactionTime = &clock
		}
	} else {
		// Receipts conventionally need a usable date for sorting/filtering;
		// this is the parser's single impurity.
		today := p.now().Format("2006-01-02")
		f.TransactionDate = &today
	}
	return f
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// storeName scans at most the first 5 non-empty lines for a merchant
// indicator, skipping proprietor lines, then falls back to the first line.
func storeName(lines []string) (string, bool) {
	if len(lines) == 0 {
		return "", false
	}

	limit := len(lines)
	if limit > 5 {
		limit = 5
	}
	for _, line := range lines[:limit] {
		if reOwnerMarker.MatchString(line) {
			continue
		}
		if reCorpMarker.MatchString(line) || reStoreSuffix.MatchString(line) || reStoreLabel.MatchString(line) {
			if name := cleanStoreName(line); name != "" {
				return name, true
			}
		}
	}

	// Receipts conventionally print the merchant name first.
	if name := cleanStoreName(lines[0]); name != "" {
		return name, true
	}
	return "", false
}

func cleanStoreName(line string) string {
	line = reStoreLabel.ReplaceAllString(line, "")
	line = reNameStrip.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

// totalAmount prefers keyword-qualified extraction; the largest surviving
// digit run is the fallback of last resort. Values of 100 or less are
// discarded to guard against line numbers, quantities, and phone fragments.
func totalAmount(text string) (int64, bool) {
	if m := reKeywordAmount.FindStringSubmatch(text); m != nil {
		if v, err := parseAmount(m[1]); err == nil {
			return v, true
		}
	}

	var best int64
	found := false
	for _, run := range reNumberRun.FindAllString(text, -1) {
		v, err := parseAmount(run)
		if err != nil || v <= 100 {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

func parseAmount(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
}

func (p *Parser) transactionDate(text string) (date, clock string, ok bool) {
	for _, rule := range dateRules {
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if date, clock, ok = rule.build(p, m); ok {
			return date, clock, true
		}
	}
	return "", "", false
}

// plausibleYear replaces the literal current-era year set with a range check
// so the parser keeps working as years pass.
func (p *Parser) plausibleYear(y int) bool {
	return y >= 1990 && y <= p.now().Year()+1
}

func validMonthDay(month, day int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}
