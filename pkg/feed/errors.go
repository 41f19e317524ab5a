package feed

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when the service responds successfully but the
// requested range contains zero records. Callers can treat this as "no
// data" rather than a transport failure.
var ErrEmptyResult = errors.New("no data in requested range")

// MalformedDataError reports a response that parsed as JSON but violated
// the feed contract: a non-numeric field value, an unparseable timestamp,
// or inconsistent channel metadata. The offending batch is identified by
// channel, and where possible by entry and field.
type MalformedDataError struct {
	Channel int64
	EntryID int64
	Field   string
	Detail  string
	Err     error
}

// Error implements the error interface.
func (e *MalformedDataError) Error() string {
	msg := fmt.Sprintf("channel %d: malformed data", e.Channel)
	if e.EntryID != 0 {
		msg += fmt.Sprintf(": entry %d", e.EntryID)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MalformedDataError) Unwrap() error {
	return e.Err
}
