package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type (
	TransactionType string

	Theme string

	// Date is a calendar date in sortable YYYY-MM-DD form. Range filters
	// compare dates as strings, so the format must stay lexicographic.
	Date string

	Money struct {
		Cents int64 `json:"cents"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Amount      Money           `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
		Type        TransactionType `json:"type"`
		CreatedBy   string          `json:"createdBy,omitempty"`
		// Timestamp and SyncID are audit fields carried on every record.
		// Reloads replace state wholesale; neither field participates in
		// any merge decision.
		Timestamp int64  `json:"timestamp,omitempty"`
		SyncID    string `json:"syncId,omitempty"`
	}

	Category struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Type     TransactionType `json:"type"`
		IsCustom bool            `json:"isCustom"`
	}

	// FinancialSummary is derived from the transaction list and never
	// persisted.
	FinancialSummary struct {
		TotalIncome  Money `json:"totalIncome"`
		TotalExpense Money `json:"totalExpense"`
		Balance      Money `json:"balance"`
	}

	// Settings are the scalar, independently persisted values. Each key is
	// last-writer-wins; there is no relational structure between them.
	Settings struct {
		AppName   string `json:"appName"`
		Theme     Theme  `json:"theme"`
		Role      string `json:"role,omitempty"`
		Broadcast string `json:"broadcast,omitempty"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty category name")
)

// DefaultAppName is the display name used until an admin sets one.
const DefaultAppName = "JEJAK LANGKAH"

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (d Date) Validate() error {
	if _, err := time.Parse("2006-01-02", string(d)); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// NewDate builds a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"))
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return t.Amount.Validate()
}

func (c Category) Validate() error {
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 60 {
		return errors.New("category name too long (max 60 characters)")
	}
	return nil
}

// NewTransaction assigns a fresh identity and audit fields to a record
// about to enter the store.
func NewTransaction(amount Money, category, description string, date Date, typ TransactionType, createdBy string) Transaction {
	return Transaction{
		ID:          uuid.NewString(),
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        date,
		Type:        typ,
		CreatedBy:   createdBy,
		Timestamp:   time.Now().UnixMilli(),
		SyncID:      uuid.NewString(),
	}
}

// NewCategory builds an admin-added (deletable) category.
func NewCategory(name string, typ TransactionType) Category {
	return Category{
		ID:       uuid.NewString(),
		Name:     name,
		Type:     typ,
		IsCustom: true,
	}
}

// DefaultCategories returns the fixed seed set. These are system
// categories: IsCustom is false and they cannot be deleted.
func DefaultCategories() []Category {
	return []Category{
		{ID: "1", Name: "Gaji", Type: Income},
		{ID: "2", Name: "Bonus", Type: Income},
		{ID: "3", Name: "Investasi", Type: Income},
		{ID: "4", Name: "Makanan", Type: Expense},
		{ID: "5", Name: "Transportasi", Type: Expense},
		{ID: "6", Name: "Belanja", Type: Expense},
		{ID: "7", Name: "Tagihan", Type: Expense},
		{ID: "8", Name: "Hiburan", Type: Expense},
	}
}

// DefaultSettings returns the scalar fallbacks used when a key is absent.
func DefaultSettings() Settings {
	return Settings{
		AppName: DefaultAppName,
		Theme:   ThemeLight,
	}
}
