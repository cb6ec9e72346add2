// Package gameid allocates game identifiers of the form YYYYMMDD####, a UTC
// calendar date followed by a 4-digit per-day sequence starting at 0001.
package gameid

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"guandan-scorekeeper/internal/constants"
)

const (
	dateLayout = "20060102"
	seqDigits  = 4
	idLength   = len(dateLayout) + seqDigits
)

var ErrSequenceExhausted = errors.New("daily game id sequence exhausted")

// DatePart returns the UTC date prefix used for ids allocated at now.
func DatePart(now time.Time) string {
	return now.UTC().Format(dateLayout)
}

// Next returns the smallest id for now's UTC date that sorts after every
// existing id with the same date prefix. Ids of other dates or other shapes
// are ignored.
func Next(now time.Time, existing []string) (string, error) {
	datePart := DatePart(now)
	maxSeq := 0
	for _, id := range existing {
		seq, ok := sequence(datePart, id)
		if ok && seq > maxSeq {
			maxSeq = seq
		}
	}
	if maxSeq >= constants.MaxIDSequence {
		return "", fmt.Errorf("%w: %s already has %d games", ErrSequenceExhausted, datePart, maxSeq)
	}
	return fmt.Sprintf("%s%0*d", datePart, seqDigits, maxSeq+1), nil
}

// Valid reports whether id is a date followed by a 4-digit sequence.
func Valid(id string) bool {
	if len(id) != idLength || !allDigits(id) {
		return false
	}
	_, err := time.Parse(dateLayout, id[:len(dateLayout)])
	return err == nil
}

func sequence(datePart, id string) (int, bool) {
	if len(id) != idLength || id[:len(datePart)] != datePart {
		return 0, false
	}
	suffix := id[len(datePart):]
	if !allDigits(suffix) {
		return 0, false
	}
	seq, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return seq, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
