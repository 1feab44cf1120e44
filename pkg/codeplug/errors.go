package codeplug

import (
	"errors"
	"fmt"
	"strings"
)

// DuplicateIndexError is returned when an index is registered twice
type DuplicateIndexError struct {
	Kind  string
	Index int
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("%s index %d defined twice", e.Kind, e.Index)
}

// UnresolvedError is returned when a mandatory reference points at an index
// that has not been created
type UnresolvedError struct {
	Kind  string
	Index int
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("referenced %s index %d not yet defined", e.Kind, e.Index)
}

// UnindexedError is returned when encoding a reference to an object that is
// not part of the configuration
type UnindexedError struct {
	Kind string
}

func (e *UnindexedError) Error() string {
	return fmt.Sprintf("referenced %s is not part of the configuration", e.Kind)
}

// CapacityError is returned when a configuration holds more objects of a
// kind than the family supports
type CapacityError struct {
	Kind     string
	Count    int
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("cannot encode %d %ss: capacity is %d", e.Count, e.Kind, e.Capacity)
}

// RangeError is returned when a value is outside the family limits and
// cannot be clamped
type RangeError struct {
	Field string
	Value any
	Limit string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %v out of range (%s)", e.Field, e.Value, e.Limit)
}

// Pass names a codec pass
type Pass string

const (
	PassCreate    Pass = "create"
	PassLink      Pass = "link"
	PassIndex     Pass = "assign indices"
	PassSerialize Pass = "serialize"
)

// PassError attaches the failing pass and record to an error
type PassError struct {
	Pass  Pass
	Kind  string
	Index int
	Name  string
	Err   error
}

func (e *PassError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s %d (%q): %v", e.Pass, e.Kind, e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("%s %s %d: %v", e.Pass, e.Kind, e.Index, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// Messages splits a wrapped error chain into one message per layer,
// outermost first.
func Messages(err error) []string {
	var msgs []string
	for err != nil {
		full := err.Error()
		inner := errors.Unwrap(err)
		if inner == nil {
			msgs = append(msgs, full)
			break
		}
		msg := strings.TrimSuffix(full, ": "+inner.Error())
		if msg != "" {
			msgs = append(msgs, msg)
		}
		err = inner
	}
	return msgs
}

// FormatMessages renders the error chain one message per line
func FormatMessages(err error) string {
	msgs := Messages(err)
	for i := range msgs {
		msgs[i] = strings.Repeat("  ", i) + msgs[i]
	}
	return strings.Join(msgs, "\n")
}
