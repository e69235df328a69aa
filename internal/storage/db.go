package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database is the per-user transaction ledger. Rows are soft-deleted only;
// every read path goes through the active scope so deleted rows never leak
// into queries, reports or exports.
type Database struct {
	db   *gorm.DB
	path string
}

func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Transaction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Database{db: db, path: dbPath}, nil
}

// active scopes a query to a user's non-deleted rows. Single definition of
// the soft-delete filter for all read paths.
func (d *Database) active(userID int64) *gorm.DB {
	return d.db.Model(&Transaction{}).Where("user_id = ? AND is_deleted = ?", userID, false)
}

// DateOnly truncates a timestamp to its calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Insert stores a new transaction and returns its id. The magnitude of
// amount is stored; direction is carried by txType. A zero date defaults to
// today.
func (d *Database) Insert(userID int64, amount float64, category, note string, txType TxType, date time.Time) (int64, error) {
	if date.IsZero() {
		date = time.Now()
	}
	tx := Transaction{
		UserID:          userID,
		Amount:          math.Abs(amount),
		Category:        category,
		Note:            note,
		Type:            txType,
		TransactionDate: DateOnly(date),
	}
	if err := d.db.Create(&tx).Error; err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return tx.ID, nil
}

// Update applies a partial update to one of the user's transactions. Nil
// pointers mean "leave unchanged"; a non-nil pointer sets the column even
// when it points at the empty string. Returns false when nothing was
// supplied or the row is missing, foreign or already deleted.
func (d *Database) Update(id, userID int64, amount *float64, category, note *string) (bool, error) {
	updates := map[string]interface{}{}
	if amount != nil {
		updates["amount"] = math.Abs(*amount)
	}
	if category != nil {
		updates["category"] = *category
	}
	if note != nil {
		updates["note"] = *note
	}
	if len(updates) == 0 {
		return false, nil
	}
	updates["updated_at"] = time.Now()

	res := d.db.Model(&Transaction{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, userID, false).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update transaction: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Delete soft-deletes one of the user's transactions. Returns false when the
// row is missing, foreign or already deleted.
func (d *Database) Delete(id, userID int64) (bool, error) {
	res := d.db.Model(&Transaction{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, userID, false).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetLast returns the user's most recently created non-deleted transaction,
// or nil when there is none.
func (d *Database) GetLast(userID int64) (*Transaction, error) {
	var tx Transaction
	err := d.active(userID).Order("created_at DESC, id DESC").First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last transaction: %w", err)
	}
	return &tx, nil
}

// Find returns the user's transactions matching all supplied filters,
// newest-created-first, bounded by limit. keyword is a case-sensitive
// substring match on note; category and date are exact matches; empty/zero
// filters are skipped.
func (d *Database) Find(userID int64, keyword, category string, date time.Time, limit int) ([]Transaction, error) {
	q := d.active(userID)
	if keyword != "" {
		// instr keeps containment case-sensitive; LIKE folds ASCII case.
		q = q.Where("instr(note, ?) > 0", keyword)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if !date.IsZero() {
		q = q.Where("transaction_date = ?", DateOnly(date))
	}

	var txs []Transaction
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	return txs, nil
}

// GetReport aggregates the user's transactions between start and end,
// inclusive on both ends, compared on calendar date.
func (d *Database) GetReport(userID int64, start, end time.Time) (*Report, error) {
	start, end = DateOnly(start), DateOnly(end)

	report := &Report{Start: start, End: end}

	inRange := func() *gorm.DB {
		return d.active(userID).Where("transaction_date BETWEEN ? AND ?", start, end)
	}

	if err := inRange().Where("type = ?", TypeIncome).
		Select("COALESCE(SUM(amount), 0)").Scan(&report.TotalIncome).Error; err != nil {
		return nil, fmt.Errorf("failed to sum income: %w", err)
	}
	if err := inRange().Where("type = ?", TypeExpense).
		Select("COALESCE(SUM(amount), 0)").Scan(&report.TotalExpense).Error; err != nil {
		return nil, fmt.Errorf("failed to sum expense: %w", err)
	}
	report.Balance = report.TotalIncome - report.TotalExpense

	if err := inRange().
		Select("category, type, SUM(amount) AS total, COUNT(*) AS count").
		Group("category, type").Order("total DESC").
		Scan(&report.ByCategory).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}

	if err := inRange().Order("transaction_date DESC, created_at DESC").
		Find(&report.Transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list report transactions: %w", err)
	}

	return report, nil
}

// DailyReport reports on a single calendar date; zero means today.
func (d *Database) DailyReport(userID int64, date time.Time) (*Report, error) {
	if date.IsZero() {
		date = time.Now()
	}
	return d.GetReport(userID, date, date)
}

// WeeklyReport reports from the most recent Monday through today.
func (d *Database) WeeklyReport(userID int64) (*Report, error) {
	today := time.Now()
	sinceMonday := (int(today.Weekday()) + 6) % 7
	return d.GetReport(userID, today.AddDate(0, 0, -sinceMonday), today)
}

// MonthlyReport reports from the first day of the current month through today.
func (d *Database) MonthlyReport(userID int64) (*Report, error) {
	today := time.Now()
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	return d.GetReport(userID, first, today)
}

// ClearAll soft-deletes every non-deleted transaction of the user and
// returns how many rows were affected.
func (d *Database) ClearAll(userID int64) (int64, error) {
	res := d.db.Model(&Transaction{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear transactions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ExportCSV renders the user's non-deleted transactions as CSV, newest
// transaction date first. The header row is always present and the output
// starts with a UTF-8 byte-order mark for spreadsheet compatibility.
func (d *Database) ExportCSV(userID int64) (string, error) {
	var txs []Transaction
	if err := d.active(userID).
		Order("transaction_date DESC, created_at DESC").
		Find(&txs).Error; err != nil {
		return "", fmt.Errorf("failed to load transactions for export: %w", err)
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Date", "Type", "Category", "Amount", "Note"}); err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, tx := range txs {
		record := []string{
			tx.TransactionDate.Format("2006-01-02"),
			string(tx.Type),
			tx.Category,
			strconv.FormatFloat(tx.Amount, 'f', -1, 64),
			tx.Note,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.String(), nil
}

// Stats reports the user's non-deleted row count and the database file size.
func (d *Database) Stats(userID int64) (count int64, sizeBytes int64, err error) {
	if err = d.active(userID).Count(&count).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	if info, statErr := os.Stat(d.path); statErr == nil {
		sizeBytes = info.Size()
	}
	return count, sizeBytes, nil
}
