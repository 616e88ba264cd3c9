package pipeline

import "fmt"

// NormalizeError reports a raw record that could not be turned into a
// venue. The record is skipped; the rest of the page continues.
type NormalizeError struct {
	Index int // position within the page
	Err   error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("pipeline: normalize record %d: %v", e.Index, e.Err)
}

func (e *NormalizeError) Unwrap() error {
	return e.Err
}

// PersistError reports a venue whose upsert failed. Sibling venues in the
// batch are still written.
type PersistError struct {
	ID  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("pipeline: persist venue %s: %v", e.ID, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
