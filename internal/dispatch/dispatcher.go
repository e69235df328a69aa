package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinhng/fingo/internal/ai"
	"github.com/vinhng/fingo/internal/categories"
	"github.com/vinhng/fingo/internal/storage"
)

// MaxQueryLimit caps how many transactions a single query turn may list.
const MaxQueryLimit = 50

// HelpText is the static help reply for /start, /help and help actions.
const HelpText = "🤖 **fingo - Trợ lý tài chính**\n\n" +
	"**Ghi:** `ăn phở 50k` · `cafe 35 nghìn`\n" +
	"**Sửa:** `à nhầm, 30k thôi`\n" +
	"**Xem:** `hôm nay chi bao nhiêu` · `tuần này`\n" +
	"**Lịch sử:** `xem 10 giao dịch gần nhất`\n" +
	"**Xóa:** `xóa cái vừa rồi`\n\n" +
	"📸 Gửi ảnh bill để nhận dạng!"

const fallbackText = "🤔 Không hiểu. Thử: `ăn phở 50k` hoặc `/help`"

// Reply is the user-facing result of one dispatched action: markdown text
// and, for exports, an attached file.
type Reply struct {
	Text     string
	FileName string
	FileData []byte
}

// Dispatcher executes resolved actions against the ledger. It is a pure
// mapping of (message text, user, action, last-transaction snapshot) to a
// Reply; the snapshot must be the same one the resolver saw.
type Dispatcher struct {
	store *storage.Database
	log   zerolog.Logger
}

func New(store *storage.Database, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{store: store, log: log}
}

func (d *Dispatcher) Dispatch(userID int64, text string, act *ai.Action, last *storage.Transaction) Reply {
	switch act.Kind {
	case ai.ActionInsert:
		return d.handleInsert(userID, text, act)
	case ai.ActionUpdate:
		return d.handleUpdate(userID, act, last)
	case ai.ActionDelete, ai.ActionUndo:
		return d.handleDelete(userID, act, last)
	case ai.ActionQuery:
		return d.handleQuery(userID, act)
	case ai.ActionReport:
		return d.handleReport(userID, act)
	case ai.ActionExport:
		return d.handleExport(userID)
	case ai.ActionClear:
		return d.handleClear(userID, text)
	case ai.ActionHelp:
		return Reply{Text: HelpText}
	default:
		if act.Message != "" {
			return Reply{Text: act.Message}
		}
		return Reply{Text: fallbackText}
	}
}

func (d *Dispatcher) handleInsert(userID int64, text string, act *ai.Action) Reply {
	if act.Amount == nil || *act.Amount <= 0 {
		return Reply{Text: "🤔 Không hiểu số tiền. Thử: `ăn phở 50k`"}
	}

	category := categories.Normalize(act.Category, act.Type == storage.TypeIncome)
	id, err := d.store.Insert(userID, *act.Amount, category, text, act.Type, act.TargetDate)
	if err != nil {
		d.log.Error().Err(err).Int64("user", userID).Msg("insert failed")
		return Reply{Text: "❌ Không thể ghi giao dịch."}
	}

	emoji := "💸"
	if act.Type == storage.TypeIncome {
		emoji = "💰"
	}

	dateInfo := ""
	if act.DateOffset > 0 || act.TimeOfDay != "" {
		dateStr := act.TargetDate.Format("02/01")
		timeStr := ""
		if act.TimeOfDay != "" {
			timeStr = " " + act.TimeOfDay
		}
		dateInfo = fmt.Sprintf("📅 %s%s\n", dateStr, timeStr)
	}

	return Reply{Text: fmt.Sprintf(
		"%s **Đã ghi!**\n%s%s %s | 💵 %sđ\n✅ #%d",
		emoji, dateInfo, categories.Icon(category), category, FormatMoney(*act.Amount), id,
	)}
}

func (d *Dispatcher) handleUpdate(userID int64, act *ai.Action, last *storage.Transaction) Reply {
	txID := act.TransactionID

	if txID == 0 && act.Keyword != "" {
		if txs, err := d.store.Find(userID, act.Keyword, "", time.Time{}, 1); err == nil && len(txs) > 0 {
			txID = txs[0].ID
		}
	}
	if txID == 0 && last != nil {
		txID = last.ID
	}
	if txID == 0 {
		return Reply{Text: "❌ Không tìm thấy giao dịch để sửa."}
	}

	var category *string
	if act.Category != "" {
		c := categories.Normalize(act.Category, act.Type == storage.TypeIncome)
		category = &c
	}

	ok, err := d.store.Update(txID, userID, act.Amount, category, act.Note)
	if err != nil {
		d.log.Error().Err(err).Int64("tx", txID).Msg("update failed")
	}
	if !ok {
		return Reply{Text: "❌ Không thể sửa."}
	}
	return Reply{Text: fmt.Sprintf("✅ Đã sửa #%d", txID)}
}

func (d *Dispatcher) handleDelete(userID int64, act *ai.Action, last *storage.Transaction) Reply {
	txID := act.TransactionID
	if txID == 0 && last != nil {
		txID = last.ID
	}
	if txID == 0 {
		return Reply{Text: "❌ Không tìm thấy giao dịch để xóa."}
	}

	ok, err := d.store.Delete(txID, userID)
	if err != nil {
		d.log.Error().Err(err).Int64("tx", txID).Msg("delete failed")
	}
	if !ok {
		return Reply{Text: "❌ Không thể xóa."}
	}
	return Reply{Text: fmt.Sprintf("🗑️ Đã xóa #%d", txID)}
}

func (d *Dispatcher) handleQuery(userID int64, act *ai.Action) Reply {
	limit := act.Limit
	if limit <= 0 {
		limit = ai.DefaultLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	txs, err := d.store.Find(userID, "", "", time.Time{}, limit)
	if err != nil {
		d.log.Error().Err(err).Int64("user", userID).Msg("query failed")
		return Reply{Text: "❌ Không thể tải giao dịch."}
	}
	if len(txs) == 0 {
		return Reply{Text: "📋 Chưa có giao dịch."}
	}

	lines := []string{fmt.Sprintf("📋 **%d giao dịch gần nhất:**\n", len(txs))}
	for _, tx := range txs {
		lines = append(lines, FormatTransaction(tx))
	}
	return Reply{Text: strings.Join(lines, "\n")}
}

func (d *Dispatcher) handleReport(userID int64, act *ai.Action) Reply {
	var (
		report *storage.Report
		title  string
		err    error
	)
	switch act.Period {
	case ai.ReportWeek:
		report, err = d.store.WeeklyReport(userID)
		title = "tuần này"
	case ai.ReportMonth:
		report, err = d.store.MonthlyReport(userID)
		title = "tháng này"
	default:
		report, err = d.store.DailyReport(userID, time.Time{})
		title = "hôm nay"
	}
	if err != nil {
		d.log.Error().Err(err).Int64("user", userID).Msg("report failed")
		return Reply{Text: "❌ Không thể tạo báo cáo."}
	}
	if len(report.Transactions) == 0 {
		return Reply{Text: fmt.Sprintf("📊 Chưa có giao dịch %s.", title)}
	}

	var catLines []string
	for i, cat := range report.ByCategory {
		if i == 5 {
			break
		}
		sign := "🔴"
		if cat.Type == storage.TypeIncome {
			sign = "🟢"
		}
		catLines = append(catLines, fmt.Sprintf("%s %s %s: %sđ",
			sign, categories.Icon(cat.Category), cat.Category, FormatMoney(cat.Total)))
	}

	return Reply{Text: fmt.Sprintf(
		"📊 **Báo cáo %s**\n\n"+
			"🟢 Thu: **%sđ**\n"+
			"🔴 Chi: **%sđ**\n"+
			"💰 Còn: **%sđ**\n\n"+
			"📂 **Theo danh mục:**\n%s",
		title,
		FormatMoney(report.TotalIncome),
		FormatMoney(report.TotalExpense),
		FormatMoney(report.Balance),
		strings.Join(catLines, "\n"),
	)}
}

func (d *Dispatcher) handleExport(userID int64) Reply {
	csv, err := d.store.ExportCSV(userID)
	if err != nil {
		d.log.Error().Err(err).Int64("user", userID).Msg("export failed")
		return Reply{Text: "❌ Không thể xuất dữ liệu."}
	}
	if strings.Count(csv, "\n") <= 1 {
		return Reply{Text: "📋 Chưa có dữ liệu."}
	}

	return Reply{
		Text:     "📁 File CSV!",
		FileName: fmt.Sprintf("fingo_%s.csv", time.Now().Format("2006-01-02")),
		FileData: []byte(csv),
	}
}

func (d *Dispatcher) handleClear(userID int64, text string) Reply {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "confirm") && !strings.Contains(lower, "xác nhận") {
		return Reply{Text: "⚠️ Nói: `xóa hết xác nhận`"}
	}

	count, err := d.store.ClearAll(userID)
	if err != nil {
		d.log.Error().Err(err).Int64("user", userID).Msg("clear failed")
		return Reply{Text: "❌ Không thể xóa."}
	}
	return Reply{Text: fmt.Sprintf("🗑️ Đã xóa %d giao dịch.", count)}
}

// InsertFromImage records a transaction extracted from a bill photo. A
// missing or non-positive amount means the bill could not be read and no
// mutation happens.
func (d *Dispatcher) InsertFromImage(userID int64, act *ai.Action) Reply {
	if act.Amount == nil || *act.Amount <= 0 {
		return Reply{Text: "❌ Không đọc được. Thử ghi thủ công."}
	}

	category := categories.Normalize(act.Category, act.Type == storage.TypeIncome)
	note := "Từ bill"
	if act.Note != nil && *act.Note != "" {
		note = *act.Note
	}

	id, err := d.store.Insert(userID, *act.Amount, category, note, act.Type, time.Time{})
	if err != nil {
		d.log.Error().Err(err).Int64("user", userID).Msg("image insert failed")
		return Reply{Text: "❌ Không thể ghi giao dịch."}
	}

	emoji := "💸"
	if act.Type == storage.TypeIncome {
		emoji = "💰"
	}
	return Reply{Text: fmt.Sprintf(
		"%s **Đã ghi từ bill!**\n📂 %s | 💵 %sđ\n✅ #%d",
		emoji, category, FormatMoney(*act.Amount), id,
	)}
}
