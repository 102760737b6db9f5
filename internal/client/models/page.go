package models

import (
	"bytes"
	"encoding/json"
)

// Page is a decoded collection response. The remote store answers either
// with a bare JSON array or with a paginated object; Paginated records which.
type Page[T any] struct {
	Count     int     `json:"count"`
	Next      *string `json:"next"`
	Previous  *string `json:"previous"`
	Results   []T     `json:"results"`
	Paginated bool    `json:"-"`
}

// BookPage is a page of catalog books.
type BookPage = Page[Book]

// NotePage is a page of the caller's notes.
type NotePage = Page[Note]

// UnmarshalJSON accepts both `[...]` and `{"count":..,"results":[...]}`.
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*p = Page[T]{Count: len(items), Results: items}
		return nil
	}

	var v pageWire[T]
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	if v.Results == nil {
		v.Results = []T{}
	}
	*p = Page[T]{Count: v.Count, Next: v.Next, Previous: v.Previous, Results: v.Results, Paginated: true}
	return nil
}

// pageWire has no UnmarshalJSON so decoding into it does not recurse.
type pageWire[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
