// Package batch splits a requested date range into windows the upstream
// API will accept.
package batch

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMaxSpanDays is the widest window the readings endpoint accepts.
const DefaultMaxSpanDays = 10

// ErrInvalidRange indicates a degenerate or inverted range, or a
// non-positive span.
var ErrInvalidRange = errors.New("batch: invalid range")

// Range is a half-open [Start, End) interval.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// Split cuts [start, end) into contiguous ascending sub-ranges of at most
// maxSpanDays each. The last range ends exactly at end; a range that
// already fits yields a single element.
//
// Span arithmetic is done on absolute instants (days x 24h), not calendar
// days, so sub-day offsets in start/end never drift across batches.
func Split(start, end time.Time, maxSpanDays int) ([]Range, error) {
	if maxSpanDays <= 0 {
		return nil, fmt.Errorf("%w: max span %d days", ErrInvalidRange, maxSpanDays)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s not before end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	span := time.Duration(maxSpanDays) * 24 * time.Hour

	var out []Range
	for cursor := start; cursor.Before(end); cursor = cursor.Add(span) {
		batchEnd := cursor.Add(span)
		if batchEnd.After(end) {
			batchEnd = end
		}
		out = append(out, Range{Start: cursor, End: batchEnd})
	}
	return out, nil
}
