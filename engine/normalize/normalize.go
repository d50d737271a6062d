// Package normalize flattens a decoded task node into a storable record.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/compozy/tdlimport/engine/tdl"
)

// serialEpochOffset is the serial day-count of 1970-01-01 in the legacy
// spreadsheet convention.
const serialEpochOffset = 25569

// Field candidate keys, in lookup order. Upper-case spellings win.
var (
	titleKeys        = []string{"TITLE", "title"}
	statusKeys       = []string{"STATUS", "status"}
	priorityKeys     = []string{"PRIORITY", "priority"}
	percentDoneKeys  = []string{"PERCENTDONE", "percentdone"}
	startDateKeys    = []string{"STARTDATE", "startdate"}
	dueDateKeys      = []string{"DUEDATE", "duedate"}
	creationDateKeys = []string{"CREATIONDATE", "creationdate"}
	lastModKeys      = []string{"LASTMOD", "lastmod"}
)

// ErrMissingTitle is matched by every MissingTitleError.
var ErrMissingTitle = errors.New("normalize: task has no title")

// MissingTitleError rejects a node without a usable title.
type MissingTitleError struct {
	Index int
	Raw   string
}

func (e *MissingTitleError) Error() string {
	return fmt.Sprintf("normalize: task node %d has no title", e.Index)
}

func (e *MissingTitleError) Is(target error) bool {
	return target == ErrMissingTitle
}

// Record is one task ready for insertion.
type Record struct {
	Title        string
	Status       *string
	Priority     *string
	PercentDone  *string
	StartDate    *string
	DueDate      *string
	CreationDate *string
	LastMod      *string
	Comments     *string

	// StartDateCoerced reports that StartDate was converted from a serial day-count.
	StartDateCoerced bool
	// RawStartDate keeps the source value when it could not be converted.
	RawStartDate string
}

// StartDateUnparsed reports an attribute-style start date that was not a number.
func (r *Record) StartDateUnparsed() bool {
	return r.RawStartDate != ""
}

// Normalize maps one task node to a Record.
func Normalize(node tdl.TaskNode) (*Record, error) {
	src := node.Source
	title, ok := resolveTitle(src)
	if !ok {
		return nil, &MissingTitleError{Index: node.Index, Raw: node.Raw()}
	}
	rec := &Record{
		Title:        title,
		Status:       optional(src, statusKeys),
		Priority:     optional(src, priorityKeys),
		PercentDone:  optional(src, percentDoneKeys),
		DueDate:      optional(src, dueDateKeys),
		CreationDate: optional(src, creationDateKeys),
		LastMod:      optional(src, lastModKeys),
		Comments:     node.Comments,
	}
	start := optional(src, startDateKeys)
	if start == nil || src.Kind != tdl.KindAttributes {
		rec.StartDate = start
		return rec, nil
	}
	if *start == "" {
		return rec, nil
	}
	if date, ok := SerialToDate(*start); ok {
		rec.StartDate = &date
		rec.StartDateCoerced = true
		return rec, nil
	}
	rec.StartDate = start
	rec.RawStartDate = *start
	return rec, nil
}

// Serial dates must land in years 0 through 9999.
var (
	minSerialSecs = float64(time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).Unix())
	maxSerialSecs = float64(time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC).Unix())
)

// resolveTitle returns the first non-empty title in key order. Whitespace
// counts as content.
func resolveTitle(src tdl.TaskSource) (string, bool) {
	for _, k := range titleKeys {
		if v := src.Fields[k]; v != "" {
			return v, true
		}
	}
	return "", false
}

// SerialToDate converts a serial day-count to a YYYY-MM-DD date in UTC.
// Counts outside years 0 through 9999 are not converted.
func SerialToDate(serial string) (string, bool) {
	days, err := strconv.ParseFloat(strings.TrimSpace(serial), 64)
	if err != nil || math.IsNaN(days) || math.IsInf(days, 0) {
		return "", false
	}
	secs := math.Floor((days - serialEpochOffset) * 86400)
	if secs < minSerialSecs || secs >= maxSerialSecs {
		return "", false
	}
	return time.Unix(int64(secs), 0).UTC().Format(time.DateOnly), true
}

func optional(src tdl.TaskSource, keys []string) *string {
	v, ok := src.Lookup(keys...)
	if !ok {
		return nil
	}
	return &v
}
