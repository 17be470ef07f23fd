// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of query parameters, path ids and JSON
// bodies. Malformed input is reported as a ParamError and never partially
// applied.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"financas/internal/core"
	"financas/internal/report"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ParamError reports a malformed query or path parameter.
type ParamError struct {
	Param   string
	Message string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

func (e *ParamError) Unwrap() error { return core.ErrInvalidParameters }

func paramError(param, msg string) error {
	return &ParamError{Param: param, Message: msg}
}

// BodyError reports a request body that is not valid JSON for the target.
type BodyError struct {
	Field string
	Err   error
}

func (e *BodyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return e.Err.Error()
}

func (e *BodyError) Unwrap() error { return e.Err }

// query returns the trimmed value of key, "" when absent.
func query(q url.Values, key string) string {
	return strings.TrimSpace(q.Get(key))
}

// parseOptionalInt parses key as an integer; ok is false when absent.
func parseOptionalInt(q url.Values, key string) (v int, ok bool, err error) {
	s := query(q, key)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, paramError(key, "deve ser um número inteiro.")
	}
	return v, true, nil
}

func parseOptionalID(q url.Values, key string) (*int64, error) {
	s := query(q, key)
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, paramError(key, "deve ser um número inteiro.")
	}
	return &id, nil
}

func parseOptionalBound(q url.Values, key string) (*core.Money, error) {
	s := query(q, key)
	if s == "" {
		return nil, nil
	}
	m, err := core.ParseAmountBound(s)
	if err != nil {
		return nil, paramError(key, "deve ser um número.")
	}
	return &m, nil
}

func parseOptionalDate(q url.Values, key string) (*core.Date, error) {
	s := query(q, key)
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, paramError(key, "formato de data inválido, use AAAA-MM-DD.")
	}
	return &d, nil
}

// parseMonth validates an optional month in 1..12.
func parseMonth(q url.Values, key string) (int, error) {
	m, ok, err := parseOptionalInt(q, key)
	if err != nil || !ok {
		return 0, err
	}
	if m < 1 || m > 12 {
		return 0, paramError(key, "deve estar entre 1 e 12.")
	}
	return m, nil
}

// parseYear validates an optional four-digit year.
func parseYear(q url.Values, key string) (int, error) {
	y, ok, err := parseOptionalInt(q, key)
	if err != nil || !ok {
		return 0, err
	}
	if y < 1 || y > 9999 {
		return 0, paramError(key, "ano inválido.")
	}
	return y, nil
}

// ParseTransactionFilter reads the listing filters of /transacoes/.
func ParseTransactionFilter(q url.Values) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	var err error

	if s := query(q, "descricao"); s != "" {
		f.Description = &s
	}
	if f.MinAmount, err = parseOptionalBound(q, "valor_min"); err != nil {
		return core.TransactionFilter{}, err
	}
	if f.MaxAmount, err = parseOptionalBound(q, "valor_max"); err != nil {
		return core.TransactionFilter{}, err
	}
	if f.StartDate, err = parseOptionalDate(q, "data_inicio"); err != nil {
		return core.TransactionFilter{}, err
	}
	if f.EndDate, err = parseOptionalDate(q, "data_fim"); err != nil {
		return core.TransactionFilter{}, err
	}
	if f.CategoryID, err = parseOptionalID(q, "categoria"); err != nil {
		return core.TransactionFilter{}, err
	}
	if s := query(q, "tipo"); s != "" {
		k := core.TransactionKind(s)
		f.Kind = &k
	}
	if s := query(q, "status"); s != "" {
		st := core.TransactionStatus(s)
		f.Status = &st
	}
	return f, nil
}

// ParseAnalysisParams reads month and categoria for /analises/.
func ParseAnalysisParams(q url.Values) (report.AnalysisParams, error) {
	month, err := parseMonth(q, "month")
	if err != nil {
		return report.AnalysisParams{}, err
	}
	categoryID, err := parseOptionalID(q, "categoria")
	if err != nil {
		return report.AnalysisParams{}, err
	}
	return report.AnalysisParams{Month: month, CategoryID: categoryID}, nil
}

// ProjectionQuery holds the parameters of /projecoes/. Zero values mean
// "use the default".
type ProjectionQuery struct {
	Year   int
	Months int
}

// ParseProjectionQuery reads year and meses. tipo_media_calculo is
// accepted for compatibility and ignored.
func ParseProjectionQuery(q url.Values) (ProjectionQuery, error) {
	year, err := parseYear(q, "year")
	if err != nil {
		return ProjectionQuery{}, err
	}
	months, ok, err := parseOptionalInt(q, "meses")
	if err != nil {
		return ProjectionQuery{}, err
	}
	if ok && months < 1 {
		return ProjectionQuery{}, paramError("meses", "deve ser maior que zero.")
	}
	return ProjectionQuery{Year: year, Months: months}, nil
}

// ParseDashboardParams reads period, month and year for /dashboard/.
// Any period other than "all" selects a single month.
func ParseDashboardParams(q url.Values) (report.DashboardParams, error) {
	p := report.DashboardParams{Period: report.PeriodMonth}
	if strings.EqualFold(query(q, "period"), report.PeriodAll) {
		p.Period = report.PeriodAll
		return p, nil
	}
	var err error
	if p.Month, err = parseMonth(q, "month"); err != nil {
		return report.DashboardParams{}, err
	}
	if p.Year, err = parseYear(q, "year"); err != nil {
		return report.DashboardParams{}, err
	}
	return p, nil
}

// pathID reads the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	s := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, paramError("id", "deve ser um número inteiro positivo.")
	}
	return id, nil
}

// decodeJSON decodes the request body into dst. Decoding over a populated
// dst only replaces the fields present in the body, which is how PATCH
// merges into the stored record.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return &BodyError{Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return &BodyError{Err: errors.New("corpo da requisição muito grande")}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return &BodyError{Err: errors.New("corpo da requisição vazio")}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &BodyError{Field: typeErr.Field, Err: errors.New("tipo inválido")}
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return &BodyError{Err: errors.New("JSON malformado")}
		}
		return &BodyError{Err: err}
	}
	return nil
}
