// Package http provides HTTP server and handler implementations.
//
// This file turns query strings and request bodies into ledger inputs:
// month selectors, aggregate filters, entry candidates and id selections.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/ledger"
)

// maxBodyBytes bounds entry and delete submissions.
const maxBodyBytes = 64 << 10

// ParseMonthParam reads ?month=YYYY-MM. A missing or malformed value yields
// the zero month, which selects the newest month with data.
func ParseMonthParam(query url.Values) core.YearMonth {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return core.YearMonth{}
	}
	ym, err := core.ParseYearMonth(v)
	if err != nil {
		return core.YearMonth{}
	}
	return ym
}

// ParseFilter builds an aggregate filter from from, to, category, account,
// type and sort parameters. Repeated parameters form sets.
func ParseFilter(query url.Values) (ledger.Filter, error) {
	var (
		f  ledger.Filter
		ve core.ValidationError
	)
	for _, p := range []struct {
		name string
		dst  *core.Date
	}{{"from", &f.From}, {"to", &f.To}} {
		v := strings.TrimSpace(query.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			ve.Fields = append(ve.Fields, core.FieldError{Field: p.name, Value: v, Err: core.ErrInvalidDate})
			continue
		}
		*p.dst = d
	}
	if len(ve.Fields) > 0 {
		return ledger.Filter{}, &ve
	}

	f.Categories = nonEmpty(query["category"])
	f.Accounts = nonEmpty(query["account"])
	f.Types = nonEmpty(query["type"])
	f.SortByMagnitude = query.Get("sort") == "magnitude"

	if err := f.Validate(); err != nil {
		return ledger.Filter{}, err
	}
	return f, nil
}

// ParseIDs converts selected checkbox values into ledger ids.
func ParseIDs(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("identifiant invalide: " + strconv.Quote(v))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Candidate collects the entry form fields.
func (p *RequestBodyParser) Candidate() core.Candidate {
	return core.Candidate{
		Date:        p.Get("date"),
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Account:     p.Get("account"),
		Type:        p.Get("type"),
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod returns an error response when the method is not allowed.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Format de requête invalide")
	}
	return nil
}
