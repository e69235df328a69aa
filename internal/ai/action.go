package ai

import (
	"math"
	"time"

	"github.com/vinhng/fingo/internal/storage"
)

// Kind is the closed set of actions the model may resolve a message to.
type Kind string

const (
	ActionInsert  Kind = "insert"
	ActionUpdate  Kind = "update"
	ActionDelete  Kind = "delete"
	ActionQuery   Kind = "query"
	ActionReport  Kind = "report"
	ActionExport  Kind = "export"
	ActionClear   Kind = "clear"
	ActionUndo    Kind = "undo"
	ActionHelp    Kind = "help"
	ActionUnknown Kind = "unknown"
)

// ReportPeriod is the aggregation window for report actions.
type ReportPeriod string

const (
	ReportDay   ReportPeriod = "day"
	ReportWeek  ReportPeriod = "week"
	ReportMonth ReportPeriod = "month"
)

// DefaultLimit bounds query results when the model does not ask for a count.
const DefaultLimit = 10

// Action is the structured interpretation of one user turn. Pointer fields
// distinguish "absent" from an explicit zero value, which matters for
// partial updates.
type Action struct {
	Kind     Kind
	Amount   *float64
	Category string
	Note     *string
	Type     storage.TxType

	// Reference for update/delete/undo.
	TransactionID int64
	Keyword       string

	// Query/report.
	Period     ReportPeriod
	Limit      int
	DateOffset int
	TimeOfDay  string
	TargetDate time.Time

	// Resolver-supplied reply for help/unknown.
	Message string
}

var knownKinds = map[Kind]bool{
	ActionInsert: true, ActionUpdate: true, ActionDelete: true,
	ActionQuery: true, ActionReport: true, ActionExport: true,
	ActionClear: true, ActionUndo: true, ActionHelp: true,
	ActionUnknown: true,
}

// Unknown builds the fallback action used whenever the model response cannot
// be interpreted.
func Unknown(now time.Time) *Action {
	return &Action{
		Kind:       ActionUnknown,
		Type:       storage.TypeExpense,
		Period:     ReportDay,
		Limit:      DefaultLimit,
		TargetDate: storage.DateOnly(now),
	}
}

// actionFromPayload sanitizes a decoded model payload into an Action. Every
// field is coerced defensively: unknown enum values degrade to documented
// defaults, never to an error.
func actionFromPayload(data map[string]interface{}, now time.Time) *Action {
	act := Unknown(now)

	if kind := Kind(asString(data["action"])); knownKinds[kind] {
		act.Kind = kind
	}

	if amount, ok := asFloat(data["amount"]); ok {
		amount = math.Abs(amount)
		act.Amount = &amount
	}
	act.Category = asString(data["category"])
	if note, ok := data["note"]; ok {
		if s, isStr := note.(string); isStr {
			act.Note = &s
		}
	}
	if t := storage.TxType(asString(data["type"])); t == storage.TypeIncome {
		act.Type = storage.TypeIncome
	}

	if id, ok := asFloat(data["transaction_id"]); ok && id > 0 {
		act.TransactionID = int64(id)
	}
	act.Keyword = asString(data["keyword"])

	switch p := ReportPeriod(asString(data["report_type"])); p {
	case ReportDay, ReportWeek, ReportMonth:
		act.Period = p
	}
	if limit, ok := asFloat(data["limit"]); ok && limit > 0 {
		act.Limit = int(limit)
	}

	if offset, ok := asFloat(data["date_offset"]); ok && offset > 0 {
		act.DateOffset = int(offset)
	}
	act.TimeOfDay = asString(data["time_of_day"])
	act.TargetDate = ResolveDate(now, act.DateOffset)

	act.Message = asString(data["message"])

	return act
}

// ResolveDate computes the attributed calendar date from a relative day
// offset: 0 = today, 1 = yesterday, and so on. Negative offsets are treated
// as today.
func ResolveDate(now time.Time, offsetDays int) time.Time {
	if offsetDays < 0 {
		offsetDays = 0
	}
	return storage.DateOnly(now).AddDate(0, 0, -offsetDays)
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
