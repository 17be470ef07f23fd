package core

import "strings"

// TransactionFilter narrows a transaction listing. Nil fields impose no
// constraint.
type TransactionFilter struct {
	Description *string
	MinAmount   *Money
	MaxAmount   *Money
	StartDate   *Date
	EndDate     *Date
	CategoryID  *int64
	Kind        *TransactionKind
	Status      *TransactionStatus
}

// IsEmpty reports whether the filter has no predicate set.
func (f TransactionFilter) IsEmpty() bool {
	return f.Description == nil && f.MinAmount == nil && f.MaxAmount == nil &&
		f.StartDate == nil && f.EndDate == nil && f.CategoryID == nil &&
		f.Kind == nil && f.Status == nil
}

// Match evaluates the filter against a single transaction in memory.
func (f TransactionFilter) Match(t Transaction) bool {
	if f.Description != nil &&
		!strings.Contains(strings.ToLower(t.Description), strings.ToLower(*f.Description)) {
		return false
	}
	if f.MinAmount != nil && t.Amount.LessThan(f.MinAmount.Decimal) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(f.MaxAmount.Decimal) {
		return false
	}
	if f.StartDate != nil && t.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.Date.After(*f.EndDate) {
		return false
	}
	if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Kind != nil && t.Kind != *f.Kind {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	return true
}
