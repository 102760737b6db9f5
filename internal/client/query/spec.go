// Package query turns listing intent (search term, sort key, author filter)
// into the canonical remote query, and keeps the displayed listing
// consistent when fetches overlap.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// SortKey is an ordering understood by the remote store. A leading '-'
// means descending.
type SortKey string

const (
	SortTitle       SortKey = "title"
	SortAuthor      SortKey = "author"
	SortNewestFirst SortKey = "-publication_date"
	SortOldestFirst SortKey = "publication_date"

	DefaultSort = SortTitle
)

const (
	searchParam   = "search"
	orderingParam = "ordering"
	authorParam   = "author"
	pageParam     = "page"

	sortKeyRule = "omitempty,oneof=title author -publication_date publication_date"
)

// SortKeys lists the accepted sort keys in display order.
var SortKeys = []SortKey{SortTitle, SortAuthor, SortNewestFirst, SortOldestFirst}

// ErrInvalidSort is returned for a sort key the remote store does not know.
var ErrInvalidSort = errors.New("invalid sort key")

// Spec is the listing intent. Empty fields are left out of the query.
type Spec struct {
	Search   string
	Ordering SortKey
	Author   string
	Page     int `validate:"gte=0"`
}

var validate = validator.New()

// Validate checks the sort key and page number.
func (s Spec) Validate() error {
	if err := validate.Var(string(s.Ordering), sortKeyRule); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSort, s.Ordering)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	return nil
}

// Values builds the outgoing query. A parameter is present only when its
// field is set: the remote store treats an absent filter differently from
// an empty one.
func (s Spec) Values() url.Values {
	v := url.Values{}
	if s.Search != "" {
		v.Set(searchParam, s.Search)
	}
	if s.Ordering != "" {
		v.Set(orderingParam, string(s.Ordering))
	}
	if s.Author != "" {
		v.Set(authorParam, s.Author)
	}
	if s.Page > 0 {
		v.Set(pageParam, strconv.Itoa(s.Page))
	}
	return v
}

// ParseSortKey accepts a sort key as typed by a user.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(s)
	if err := validate.Var(s, sortKeyRule); err != nil || k == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
	}
	return k, nil
}
