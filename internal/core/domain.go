package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Expense is a committed ledger entry. Immutable once created; identity
	// is ID.
	Expense struct {
		ID        int64
		Name      string
		Amount    decimal.Decimal
		CreatedAt time.Time
	}

	// Draft holds unsubmitted form input. Both fields are raw text and may
	// be empty or non-numeric until submission validates them.
	Draft struct {
		Name   string
		Amount string
	}
)

var (
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidAmount = errors.New("invalid amount")
)

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// IsEmpty reports whether the draft has no input at all.
func (d Draft) IsEmpty() bool {
	return d.Name == "" && d.Amount == ""
}
