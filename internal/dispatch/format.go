package dispatch

import (
	"fmt"
	"math"
	"strconv"

	"github.com/vinhng/fingo/internal/categories"
	"github.com/vinhng/fingo/internal/storage"
)

// FormatMoney renders an amount with Vietnamese dot thousands separators,
// e.g. 1500000 → "1.500.000".
func FormatMoney(v float64) string {
	neg := v < 0
	s := strconv.FormatFloat(math.Round(math.Abs(v)), 'f', 0, 64)

	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// FormatTransaction renders one transaction as a two-line list entry.
func FormatTransaction(tx storage.Transaction) string {
	sign := "🔴"
	if tx.Type == storage.TypeIncome {
		sign = "🟢"
	}
	note := tx.Note
	if note == "" {
		note = "-"
	}
	return fmt.Sprintf("%s #%d | %s | %s %s: %sđ\n   └ %s",
		sign, tx.ID, tx.TransactionDate.Format("02/01"),
		categories.Icon(tx.Category), tx.Category,
		FormatMoney(tx.Amount), note)
}
