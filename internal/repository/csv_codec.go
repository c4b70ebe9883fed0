package repository

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const csvTimeLayout = time.RFC3339

func fmtInt(v int) string { return strconv.Itoa(v) }

func fmtIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func fmtInt64Ptr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func fmtBool(v bool) string { return strconv.FormatBool(v) }

func fmtBoolPtr(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func fmtDecimalPtr(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func fmtTime(t time.Time) string { return t.Format(csvTimeLayout) }

// csvRecord gives by-name access to one CSV row and collects the first
// parse error.
type csvRecord struct {
	index  map[string]int
	fields []string
	err    error
}

func newHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

func (r *csvRecord) fail(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: %w", name, err)
	}
}

func (r *csvRecord) str(name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r *csvRecord) int(name string) int {
	s := r.str(name)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *csvRecord) intPtr(name string) *int {
	if r.str(name) == "" {
		return nil
	}
	v := r.int(name)
	return &v
}

func (r *csvRecord) int64Ptr(name string) *int64 {
	s := r.str(name)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		r.fail(name, err)
	}
	return &v
}

func (r *csvRecord) bool(name string) bool {
	s := r.str(name)
	if s == "" {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *csvRecord) boolPtr(name string) *bool {
	if r.str(name) == "" {
		return nil
	}
	v := r.bool(name)
	return &v
}

func (r *csvRecord) float(name string) float64 {
	s := r.str(name)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *csvRecord) decimal(name string) decimal.Decimal {
	s := r.str(name)
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *csvRecord) decimalPtr(name string) *decimal.Decimal {
	if r.str(name) == "" {
		return nil
	}
	v := r.decimal(name)
	return &v
}

func (r *csvRecord) time(name string, loc *time.Location) time.Time {
	s := r.str(name)
	if s == "" {
		r.fail(name, fmt.Errorf("empty timestamp"))
		return time.Time{}
	}
	v, err := time.Parse(csvTimeLayout, s)
	if err != nil {
		r.fail(name, err)
	}
	return v.In(loc)
}
