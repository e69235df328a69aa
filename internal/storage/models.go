package storage

import (
	"time"
)

// TxType is the direction of a transaction. The stored value carries the
// direction; amounts are always non-negative magnitudes.
type TxType string

const (
	TypeIncome  TxType = "thu"
	TypeExpense TxType = "chi"
)

// Transaction represents a stored financial transaction.
type Transaction struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	UserID          int64     `gorm:"not null;index:idx_user_date,priority:1"`
	Amount          float64   `gorm:"not null"`
	Category        string    `gorm:"not null"`
	Note            string
	Type            TxType    `gorm:"type:text;not null"`
	TransactionDate time.Time `gorm:"type:date;not null;index:idx_user_date,priority:2"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	IsDeleted       bool `gorm:"not null;default:false;index:idx_user_date,priority:3"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// CategoryTotal is one aggregated (category, direction) group in a report.
type CategoryTotal struct {
	Category string
	Type     TxType
	Total    float64
	Count    int64
}

// Report aggregates a user's transactions over an inclusive date range.
type Report struct {
	Start        time.Time
	End          time.Time
	TotalIncome  float64
	TotalExpense float64
	Balance      float64
	ByCategory   []CategoryTotal
	Transactions []Transaction
}
