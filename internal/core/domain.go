package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryIncome  CategoryKind = "receita"
	CategoryExpense CategoryKind = "despesa"
	CategoryBoth    CategoryKind = "ambos"

	Income  TransactionKind = "receita"
	Expense TransactionKind = "despesa"

	Pending TransactionStatus = "pendente"
	Paid    TransactionStatus = "pago"

	GoalSave        GoalKind = "economizar"
	GoalInvest      GoalKind = "investir"
	GoalPayDownDebt GoalKind = "abater_divida"
	GoalOther       GoalKind = "outros"
)

// UncategorizedTag labels transactions without a category in reports.
const UncategorizedTag = "Sem Categoria"

// Field limits mirrored by the schema.
const (
	MaxCategoryName    = 100
	MaxDescription     = 255
	MaxGoalName        = 255
	maxTransactionUnit = 100_000_000    // decimal(10,2)
	maxGoalUnit        = 10_000_000_000 // decimal(12,2)
)

type (
	CategoryKind      string
	TransactionKind   string
	TransactionStatus string
	GoalKind          string

	Category struct {
		ID          int64        `json:"id"`
		Name        string       `json:"nome"`
		Description string       `json:"descricao"`
		Kind        CategoryKind `json:"tipo_categoria"`
	}

	Transaction struct {
		ID           int64             `json:"id"`
		Description  string            `json:"descricao"`
		Amount       Money             `json:"valor"`
		Date         Date              `json:"data_transacao"`
		Kind         TransactionKind   `json:"tipo"`
		Status       TransactionStatus `json:"status"`
		CategoryID   *int64            `json:"categoria"`
		CategoryName *string           `json:"categoria_nome"`
		CreatedAt    time.Time         `json:"data_criacao"`
		UpdatedAt    time.Time         `json:"data_atualizacao"`
	}

	Goal struct {
		ID          int64     `json:"id"`
		Name        string    `json:"nome"`
		Description string    `json:"descricao"`
		Kind        GoalKind  `json:"tipo"`
		Target      Money     `json:"valor_alvo"`
		Achieved    Money     `json:"valor_atingido"`
		StartDate   Date      `json:"data_inicio"`
		Deadline    Date      `json:"data_limite"`
		Completed   bool      `json:"concluida"`
		CreatedAt   time.Time `json:"data_criacao"`
		UpdatedAt   time.Time `json:"data_atualizacao"`
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyName         = errors.New("empty name")
	ErrDuplicateName     = errors.New("name already exists")
	ErrInvalidKind       = errors.New("invalid kind")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrMissingDeadline   = errors.New("missing deadline")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrInvalidParameters = errors.New("invalid parameters")
)

// ValidationError reports which field failed and why.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (k CategoryKind) Valid() bool {
	switch k {
	case CategoryIncome, CategoryExpense, CategoryBoth:
		return true
	}
	return false
}

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

func (s TransactionStatus) Valid() bool {
	return s == Pending || s == Paid
}

func (k GoalKind) Valid() bool {
	switch k {
	case GoalSave, GoalInvest, GoalPayDownDebt, GoalOther:
		return true
	}
	return false
}

// ApplyDefaults fills the kind when left empty.
func (c *Category) ApplyDefaults() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Kind == "" {
		c.Kind = CategoryExpense
	}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("nome", ErrEmptyName)
	}
	if len([]rune(c.Name)) > MaxCategoryName {
		return invalid("nome", fmt.Errorf("name too long (max %d characters)", MaxCategoryName))
	}
	if !c.Kind.Valid() {
		return invalid("tipo_categoria", ErrInvalidKind)
	}
	return nil
}

// ApplyDefaults fills kind, status and date when left empty.
func (t *Transaction) ApplyDefaults(today Date) {
	if t.Kind == "" {
		t.Kind = Expense
	}
	if t.Status == "" {
		t.Status = Pending
	}
	if t.Date.IsZero() {
		t.Date = today
	}
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return invalid("descricao", ErrEmptyDescription)
	}
	if len([]rune(t.Description)) > MaxDescription {
		return invalid("descricao", fmt.Errorf("description too long (max %d characters)", MaxDescription))
	}
	if err := validateAmount(t.Amount, maxTransactionUnit); err != nil {
		return invalid("valor", err)
	}
	if err := t.Date.Validate(); err != nil {
		return invalid("data_transacao", err)
	}
	if !t.Kind.Valid() {
		return invalid("tipo", ErrInvalidKind)
	}
	if !t.Status.Valid() {
		return invalid("status", ErrInvalidStatus)
	}
	return nil
}

// CategoryLabel returns the category name, or the uncategorized tag.
func (t Transaction) CategoryLabel() string {
	if t.CategoryName == nil || *t.CategoryName == "" {
		return UncategorizedTag
	}
	return *t.CategoryName
}

// ApplyDefaults fills kind and start date when left empty.
func (g *Goal) ApplyDefaults(today Date) {
	if g.Kind == "" {
		g.Kind = GoalSave
	}
	if g.StartDate.IsZero() {
		g.StartDate = today
	}
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return invalid("nome", ErrEmptyName)
	}
	if len([]rune(g.Name)) > MaxGoalName {
		return invalid("nome", fmt.Errorf("name too long (max %d characters)", MaxGoalName))
	}
	if !g.Kind.Valid() {
		return invalid("tipo", ErrInvalidKind)
	}
	if err := validateAmount(g.Target, maxGoalUnit); err != nil {
		return invalid("valor_alvo", err)
	}
	if err := validateAmount(g.Achieved, maxGoalUnit); err != nil {
		return invalid("valor_atingido", err)
	}
	if g.Deadline.IsZero() {
		return invalid("data_limite", ErrMissingDeadline)
	}
	return nil
}

// ProgressPercent is achieved/target*100, or 0 when the target is not positive.
func (g Goal) ProgressPercent() decimal.Decimal {
	if !g.Target.IsPositive() {
		return decimal.Zero
	}
	return g.Achieved.Div(g.Target.Decimal).Mul(hundred)
}

// Remaining is target minus achieved.
func (g Goal) Remaining() Money {
	return g.Target.Sub(g.Achieved)
}

// MarshalJSON adds the derived progress fields.
func (g Goal) MarshalJSON() ([]byte, error) {
	type plain Goal
	return json.Marshal(struct {
		plain
		Progress  float64 `json:"progresso_porcentagem"`
		Remaining Money   `json:"valor_restante"`
	}{
		plain:     plain(g),
		Progress:  g.ProgressPercent().Round(2).InexactFloat64(),
		Remaining: g.Remaining(),
	})
}

func validateAmount(m Money, maxUnits int64) error {
	if m.IsNegative() {
		return ErrInvalidAmount
	}
	if m.GreaterThanOrEqual(decimal.NewFromInt(maxUnits)) {
		return fmt.Errorf("%w: too many digits", ErrInvalidAmount)
	}
	return nil
}
