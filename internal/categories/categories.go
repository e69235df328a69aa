package categories

// Fixed vocabulary. Categories are never auto-created; anything outside the
// lists below falls back to the sentinel for its direction.
var Expense = []string{
	"Ăn uống",
	"Di chuyển",
	"Mua sắm",
	"Giải trí",
	"Hóa đơn",
	"Sức khỏe",
	"Học tập",
	"Quà tặng",
	"Khác",
}

var Income = []string{
	"Lương",
	"Thưởng",
	"Thu khác",
}

const (
	OtherExpense = "Khác"
	OtherIncome  = "Thu khác"
)

var icons = map[string]string{
	"Ăn uống":   "🍜",
	"Di chuyển": "🚗",
	"Mua sắm":   "🛒",
	"Giải trí":  "🎮",
	"Hóa đơn":   "🏠",
	"Sức khỏe":  "💊",
	"Học tập":   "📚",
	"Quà tặng":  "🎁",
	"Khác":      "❓",
	"Lương":     "💼",
	"Thưởng":    "🎯",
	"Thu khác":  "💰",
}

var valid = func() map[string]bool {
	m := make(map[string]bool, len(Expense)+len(Income))
	for _, c := range Expense {
		m[c] = true
	}
	for _, c := range Income {
		m[c] = true
	}
	return m
}()

func IsValid(category string) bool {
	return valid[category]
}

// Icon returns the display icon for a category, "❓" when unknown.
func Icon(category string) string {
	if icon, ok := icons[category]; ok {
		return icon
	}
	return "❓"
}

// Normalize maps an arbitrary category string to the closed vocabulary,
// falling back to the "other" sentinel for the given direction.
func Normalize(category string, income bool) string {
	if valid[category] {
		return category
	}
	if income {
		return OtherIncome
	}
	return OtherExpense
}
