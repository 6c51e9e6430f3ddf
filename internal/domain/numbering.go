package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	ProductCodePrefix   = "SP"
	InvoicePrefix       = "HD"
	StockInNumberPrefix = "NK"
)

// NextProductCode returns the code after the highest SPnnnn code in existing.
// Codes that do not follow the SP<digits> shape are ignored.
func NextProductCode(existing []string) string {
	maxNumber := 0
	for _, code := range existing {
		if n, ok := productCodeNumber(code); ok && n > maxNumber {
			maxNumber = n
		}
	}
	return fmt.Sprintf("%s%04d", ProductCodePrefix, maxNumber+1)
}

func productCodeNumber(code string) (int, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < len(ProductCodePrefix)+2 || !strings.HasPrefix(code, ProductCodePrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(code[len(ProductCodePrefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// DailyStem returns "<prefix>-yyyyMMdd-" for the calendar day of day.
func DailyStem(prefix string, day time.Time) string {
	return fmt.Sprintf("%s-%s-", prefix, day.Format("20060102"))
}

// NextDailyNumber continues the per-day sequence after last. A last value from
// another day (or an empty one) restarts the sequence at 001.
func NextDailyNumber(prefix string, day time.Time, last string) string {
	stem := DailyStem(prefix, day)
	next := 1
	if strings.HasPrefix(last, stem) {
		if n, err := strconv.Atoi(last[len(stem):]); err == nil && n > 0 {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%03d", stem, next)
}

func NextInvoiceNumber(day time.Time, last string) string {
	return NextDailyNumber(InvoicePrefix, day, last)
}

func NextStockInNumber(day time.Time, last string) string {
	return NextDailyNumber(StockInNumberPrefix, day, last)
}

// LatestDailyNumber picks the highest sequence among numbers that carry the
// stem for day. Plain string ordering breaks once a day passes 999 entries.
func LatestDailyNumber(prefix string, day time.Time, numbers []string) string {
	stem := DailyStem(prefix, day)
	latest := ""
	latestSeq := 0
	for _, number := range numbers {
		if !strings.HasPrefix(number, stem) {
			continue
		}
		seq, err := strconv.Atoi(number[len(stem):])
		if err != nil {
			continue
		}
		if seq > latestSeq {
			latest = number
			latestSeq = seq
		}
	}
	return latest
}
