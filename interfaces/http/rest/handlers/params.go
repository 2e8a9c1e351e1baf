package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "liberandum-backend/pkg/errors"
)

// queryParams reads typed values from a query string and collects every
// malformed one so a single validation error can describe them all.
type queryParams struct {
	values url.Values
	errs   []error
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{values: r.URL.Query()}
}

func (p *queryParams) str(name string) string {
	return strings.TrimSpace(p.values.Get(name))
}

func (p *queryParams) float(name string) *float64 {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be a number", name))
		return nil
	}
	return &v
}

func (p *queryParams) boolean(name string) bool {
	raw := p.str(name)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be a boolean", name))
		return false
	}
	return v
}

// list splits a comma-separated parameter, dropping blanks
func (p *queryParams) list(name string) []string {
	var out []string
	for _, part := range strings.Split(p.values.Get(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *queryParams) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return apperrors.NewValidationError(errors.Join(p.errs...).Error())
}
