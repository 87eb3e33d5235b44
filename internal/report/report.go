package report

import (
	"regexp"
	"sort"

	"receiptsnap/constants"
	"receiptsnap/internal/entity"
)

var reMonthPrefix = regexp.MustCompile(`^\d{4}-\d{2}`)

// Summary aggregates spending over a set of receipts. Receipts without an
// amount count toward Count but contribute nothing to Total.
type Summary struct {
	Count   int     `json:"count"`
	Total   int64   `json:"total"`
	Average float64 `json:"average"`
}

// MonthlyTotal is one month's spending bucket, keyed YYYY-MM.
type MonthlyTotal struct {
	Month string `json:"month"`
	Count int    `json:"count"`
	Total int64  `json:"total"`
}

// CategoryTotal is one category's spending bucket.
type CategoryTotal struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Total    int64  `json:"total"`
}

// Summarize computes count, total and average over recs.
func Summarize(recs []*entity.Receipt) Summary {
	s := Summary{Count: len(recs)}
	for _, rec := range recs {
		if rec.TotalAmount != nil {
			s.Total += *rec.TotalAmount
		}
	}
	if s.Count > 0 {
		s.Average = float64(s.Total) / float64(s.Count)
	}
	return s
}

// GroupByMonth buckets receipts by the YYYY-MM prefix of their date.
// Receipts with a missing or malformed date are skipped, never bucketed
// under garbage. Buckets come back newest month first.
func GroupByMonth(recs []*entity.Receipt) []MonthlyTotal {
	buckets := map[string]*MonthlyTotal{}
	for _, rec := range recs {
		if rec.ReceiptDate == nil || !reMonthPrefix.MatchString(*rec.ReceiptDate) {
			continue
		}
		month := (*rec.ReceiptDate)[:7]
		b, ok := buckets[month]
		if !ok {
			b = &MonthlyTotal{Month: month}
			buckets[month] = b
		}
		b.Count++
		if rec.TotalAmount != nil {
			b.Total += *rec.TotalAmount
		}
	}

	out := make([]MonthlyTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// GroupByCategory buckets receipts by category; an empty category falls
// into the default catch-all.
func GroupByCategory(recs []*entity.Receipt) []CategoryTotal {
	buckets := map[string]*CategoryTotal{}
	for _, rec := range recs {
		cat := rec.Category
		if cat == "" {
			cat = string(constants.DefaultCategory)
		}
		b, ok := buckets[cat]
		if !ok {
			b = &CategoryTotal{Category: cat}
			buckets[cat] = b
		}
		b.Count++
		if rec.TotalAmount != nil {
			b.Total += *rec.TotalAmount
		}
	}

	out := make([]CategoryTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// Months returns the distinct YYYY-MM buckets present in recs, newest first.
func Months(recs []*entity.Receipt) []string {
	totals := GroupByMonth(recs)
	out := make([]string, len(totals))
	for i, t := range totals {
		out[i] = t.Month
	}
	return out
}
