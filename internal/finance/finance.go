// Package finance computes income and expense totals over transaction
// records.
package finance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/trackerhub/internal/sanitize"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// Transaction kinds recognized in the type field.
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = money.USD

// ErrUnknownCurrency is returned for currency codes go-money does not know.
var ErrUnknownCurrency = errors.New("unknown currency")

// Summary totals a set of transactions. Amounts are in major units.
type Summary struct {
	Currency string
	Income   decimal.Decimal
	Expense  decimal.Decimal
	Balance  decimal.Decimal

	// ExpenseByCategory sums expenses per category field; records without
	// a category are grouped under "".
	ExpenseByCategory map[string]decimal.Decimal

	// Count is the number of records that were income or expense.
	Count int
}

// Summarize sums the amount of every income and expense record. Records of
// any other type are skipped. Amounts that do not parse count as zero.
func Summarize(records []types.Record, currency string) (Summary, error) {
	if currency == "" {
		currency = DefaultCurrency
	}
	currency = strings.ToUpper(currency)
	if money.GetCurrency(currency) == nil {
		return Summary{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}

	s := Summary{
		Currency:          currency,
		Income:            decimal.Zero,
		Expense:           decimal.Zero,
		ExpenseByCategory: make(map[string]decimal.Decimal),
	}
	for _, rec := range records {
		kind, _ := rec["type"].(string)
		amount := decimal.NewFromFloat(sanitize.Number(rec["amount"]))

		switch kind {
		case KindIncome:
			s.Income = s.Income.Add(amount)
		case KindExpense:
			s.Expense = s.Expense.Add(amount)
			category, _ := rec["category"].(string)
			s.ExpenseByCategory[category] = s.ExpenseByCategory[category].Add(amount)
		default:
			continue
		}
		s.Count++
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s, nil
}

// Format renders a major-unit amount in the summary currency, for example
// "$1,234.50".
func (s Summary) Format(amount decimal.Decimal) string {
	cur := money.GetCurrency(s.Currency)
	if cur == nil {
		return amount.String()
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), s.Currency).Display()
}

// FormattedBalance renders the balance in the summary currency.
func (s Summary) FormattedBalance() string {
	return s.Format(s.Balance)
}
