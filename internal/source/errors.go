package source

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrInvalidPage is returned when the page number or page size is below 1.
var ErrInvalidPage = eris.New("source: page number and page size must be >= 1")

// FetchError reports a failed page fetch: transport failure, non-2xx
// response, or a body without the expected page.entities envelope.
type FetchError struct {
	Page  int
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source: fetch page %d: %v", e.Page, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
