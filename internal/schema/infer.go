// Package schema infers dataset column schemas from CSV samples.
package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Column type names as the platform spells them.
const (
	TypeString   = "string"
	TypeInt      = "int"
	TypeFloat    = "float"
	TypeBoolean  = "boolean"
	TypeDate     = "date"
	TypeTime     = "time"
	TypeDateTime = "datetime"
)

// Sampling defaults.
const (
	DefaultHeaderRow  = 1
	DefaultSampleSize = 100
)

// Options controls CSV sampling.
type Options struct {
	// HeaderRow is the 1-based row holding column names. Zero means row 1.
	HeaderRow int
	// SampleSize caps how many data rows are read. Zero means 100.
	SampleSize int
	// Delimiter is the field separator. Zero means comma.
	Delimiter rune
}

func (o Options) withDefaults() Options {
	if o.HeaderRow <= 0 {
		o.HeaderRow = DefaultHeaderRow
	}

	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}

	if o.Delimiter == 0 {
		o.Delimiter = ','
	}

	return o
}

// InferredColumn is one column of an inferred schema.
type InferredColumn struct {
	Name     string
	Type     string
	Nullable bool
}

// InferCSV reads a CSV sample and infers a column schema from it.
//
// For each column the narrowest type all non-empty sampled values fit is
// chosen, probing in order: int, float, boolean, date, time, datetime.
// Columns where no probe holds, or with no non-empty values at all, come
// back as string. Empty cells do not vote on the type but mark the column
// nullable, as do rows shorter than the header.
func InferCSV(r io.Reader, opts Options) ([]InferredColumn, error) {
	opts = opts.withDefaults()

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = -1

	for i := 1; i < opts.HeaderRow; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, fmt.Errorf("header row %d not found: %w", opts.HeaderRow, err)
		}
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("header row %d not found: %w", opts.HeaderRow, err)
	}

	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make([]*columnStats, len(header))
	for i, name := range header {
		cols[i] = newColumnStats(strings.TrimSpace(name))
	}

	for n := 0; n < opts.SampleSize; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read sample row: %w", err)
		}

		for i, c := range cols {
			if i < len(rec) {
				c.observe(rec[i])
			} else {
				c.observe("")
			}
		}
	}

	out := make([]InferredColumn, len(cols))
	for i, c := range cols {
		out[i] = InferredColumn{
			Name:     c.name,
			Type:     c.resolve(),
			Nullable: c.sawEmpty || c.nonEmpty == 0,
		}
	}

	return out, nil
}

// columnStats tracks which types remain possible for one column.
// Every candidate starts true and is knocked out by the first counterexample.
type columnStats struct {
	name     string
	nonEmpty int
	sawEmpty bool

	isInt      bool
	isFloat    bool
	isBool     bool
	isDate     bool
	isTime     bool
	isDateTime bool
}

func newColumnStats(name string) *columnStats {
	return &columnStats{
		name:       name,
		isInt:      true,
		isFloat:    true,
		isBool:     true,
		isDate:     true,
		isTime:     true,
		isDateTime: true,
	}
}

var (
	dateLayouts     = []string{"2006-01-02", "2006/01/02"}
	timeLayouts     = []string{"15:04:05", "15:04"}
	dateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
)

func (c *columnStats) observe(raw string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		c.sawEmpty = true

		return
	}

	c.nonEmpty++

	if c.isInt {
		_, err := strconv.ParseInt(v, 10, 64)
		c.isInt = err == nil
	}

	if c.isFloat {
		_, err := strconv.ParseFloat(v, 64)
		c.isFloat = err == nil
	}

	if c.isBool {
		lv := strings.ToLower(v)
		c.isBool = lv == "true" || lv == "false"
	}

	if c.isDate {
		c.isDate = parsesAny(v, dateLayouts)
	}

	if c.isTime {
		c.isTime = parsesAny(v, timeLayouts)
	}

	if c.isDateTime {
		c.isDateTime = parsesAny(v, dateTimeLayouts)
	}
}

func (c *columnStats) resolve() string {
	if c.nonEmpty == 0 {
		return TypeString
	}

	switch {
	case c.isInt:
		return TypeInt
	case c.isFloat:
		return TypeFloat
	case c.isBool:
		return TypeBoolean
	case c.isDate:
		return TypeDate
	case c.isTime:
		return TypeTime
	case c.isDateTime:
		return TypeDateTime
	default:
		return TypeString
	}
}

func parsesAny(v string, layouts []string) bool {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}

	return false
}
