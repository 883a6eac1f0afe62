package moderately

import (
	"context"
	"iter"
	"net/url"
	"strconv"

	"github.com/moderately-ai/moderately-go/internal/apierror"
	"github.com/moderately-ai/moderately-go/internal/validate"
)

// Pagination describes the position of a page within a listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether more pages follow this one.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// Page is a single page of a listing.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// ListParams are the paging and ordering parameters shared by all listings.
// The zero value requests the server defaults.
type ListParams struct {
	// Page is the 1-based page number.
	Page int `json:"page" validate:"omitempty,gte=1"`

	// PageSize is the number of items per page, at most 100.
	PageSize int `json:"pageSize" validate:"omitempty,gte=1,lte=100"`

	// OrderBy names the field to sort by, e.g. "createdAt".
	OrderBy string `json:"orderBy" validate:"omitempty"`

	// OrderDirection is "asc" or "desc".
	OrderDirection string `json:"orderDirection" validate:"omitempty,oneof=asc desc"`
}

// values renders the paging parameters as query parameters.
func (p ListParams) values() url.Values {
	query := url.Values{}

	if p.Page > 0 {
		query.Set("page", strconv.Itoa(p.Page))
	}

	if p.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(p.PageSize))
	}

	if p.OrderBy != "" {
		query.Set("orderBy", p.OrderBy)
	}

	if p.OrderDirection != "" {
		query.Set("orderDirection", p.OrderDirection)
	}

	return query
}

// validateParams runs client-side validation over a params struct and wraps
// failures in a ValidationError.
func validateParams(what string, params any) error {
	if err := validate.Struct(params); err != nil {
		return &apierror.ValidationError{Message: what, Err: err}
	}

	return nil
}

// allPages turns a page-fetching function into an iterator over items.
//
// Pages are fetched lazily: breaking out of the loop stops further requests.
// On error the iterator yields a zero item with the error and stops.
func allPages[T any](ctx context.Context, fetch func(ctx context.Context, page int) (*Page[T], error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(zero, err)

				return
			}

			result, err := fetch(ctx, page)
			if err != nil {
				yield(zero, err)

				return
			}

			for _, item := range result.Items {
				if !yield(item, nil) {
					return
				}
			}

			if !result.Pagination.HasNext() || len(result.Items) == 0 {
				return
			}
		}
	}
}
