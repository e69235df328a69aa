package dispatch

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vinhng/fingo/internal/ai"
	"github.com/vinhng/fingo/internal/logger"
	"github.com/vinhng/fingo/internal/storage"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *storage.Database) {
	t.Helper()
	dsn := fmt.Sprintf("file:dispatch_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := storage.NewDatabase(dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return New(db, logger.NewWithWriter(io.Discard)), db
}

func amt(v float64) *float64 { return &v }

func insertAction(amount *float64, category string) *ai.Action {
	return &ai.Action{
		Kind:       ai.ActionInsert,
		Amount:     amount,
		Category:   category,
		Type:       storage.TypeExpense,
		Period:     ai.ReportDay,
		Limit:      ai.DefaultLimit,
		TargetDate: storage.DateOnly(time.Now()),
	}
}

func TestInsertUsesFullMessageAsNote(t *testing.T) {
	d, db := newTestDispatcher(t)

	reply := d.Dispatch(1, "ăn phở 50k", insertAction(amt(50000), "Ăn uống"), nil)
	if !strings.Contains(reply.Text, "Đã ghi") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}

	last, _ := db.GetLast(1)
	if last == nil || last.Note != "ăn phở 50k" {
		t.Fatalf("note should be the full message, got %+v", last)
	}
	if last.Amount != 50000 || last.Category != "Ăn uống" {
		t.Fatalf("wrong stored values: %+v", last)
	}
}

func TestInsertMissingAmount(t *testing.T) {
	d, db := newTestDispatcher(t)

	for _, amount := range []*float64{nil, amt(0), amt(-1)} {
		reply := d.Dispatch(1, "ăn phở", insertAction(amount, "Ăn uống"), nil)
		if !strings.Contains(reply.Text, "Không hiểu số tiền") {
			t.Fatalf("unexpected reply: %q", reply.Text)
		}
	}
	if last, _ := db.GetLast(1); last != nil {
		t.Fatalf("no mutation expected, got %+v", last)
	}
}

func TestInsertCategoryFallback(t *testing.T) {
	d, db := newTestDispatcher(t)

	d.Dispatch(1, "gì đó 10k", insertAction(amt(10000), "Tiệc tùng"), nil)
	last, _ := db.GetLast(1)
	if last == nil || last.Category != "Khác" {
		t.Fatalf("want fallback category Khác, got %+v", last)
	}

	act := insertAction(amt(1000000), "Trúng số")
	act.Type = storage.TypeIncome
	d.Dispatch(1, "trúng số 1tr", act, nil)
	last, _ = db.GetLast(1)
	if last == nil || last.Category != "Thu khác" {
		t.Fatalf("want fallback category Thu khác, got %+v", last)
	}
}

func TestInsertBackdatedConfirmation(t *testing.T) {
	d, _ := newTestDispatcher(t)

	act := insertAction(amt(20000), "Ăn uống")
	act.DateOffset = 1
	act.TimeOfDay = "tối"
	act.TargetDate = storage.DateOnly(time.Now()).AddDate(0, 0, -1)

	reply := d.Dispatch(1, "tối qua ăn 20k", act, nil)
	if !strings.Contains(reply.Text, "📅") || !strings.Contains(reply.Text, "tối") {
		t.Fatalf("back-date info missing from reply: %q", reply.Text)
	}
}

func TestUpdateResolvesByKeywordThenLast(t *testing.T) {
	d, db := newTestDispatcher(t)

	d.Dispatch(1, "ăn phở 50k", insertAction(amt(50000), "Ăn uống"), nil)
	d.Dispatch(1, "cafe 35k", insertAction(amt(35000), "Ăn uống"), nil)
	phoID := int64(1)

	// Keyword wins over the last-transaction fallback.
	act := &ai.Action{Kind: ai.ActionUpdate, Amount: amt(30000), Keyword: "phở", Type: storage.TypeExpense}
	last, _ := db.GetLast(1)
	reply := d.Dispatch(1, "phở chỉ 30k thôi", act, last)
	if !strings.Contains(reply.Text, fmt.Sprintf("#%d", phoID)) {
		t.Fatalf("expected keyword match on #%d: %q", phoID, reply.Text)
	}

	txs, _ := db.Find(1, "phở", "", time.Time{}, 1)
	if len(txs) != 1 || txs[0].Amount != 30000 {
		t.Fatalf("keyword-matched row not updated: %+v", txs)
	}

	// Without id or keyword the last transaction is the referent.
	act = &ai.Action{Kind: ai.ActionUpdate, Amount: amt(40000), Type: storage.TypeExpense}
	last, _ = db.GetLast(1)
	d.Dispatch(1, "à nhầm, 40k", act, last)
	updated, _ := db.GetLast(1)
	if updated.Amount != 40000 {
		t.Fatalf("last transaction not updated: %+v", updated)
	}
}

func TestUpdateNothingToReference(t *testing.T) {
	d, _ := newTestDispatcher(t)

	act := &ai.Action{Kind: ai.ActionUpdate, Amount: amt(10000), Type: storage.TypeExpense}
	reply := d.Dispatch(1, "sửa lại", act, nil)
	if !strings.Contains(reply.Text, "Không tìm thấy") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
}

func TestDeleteLastThenAgain(t *testing.T) {
	d, db := newTestDispatcher(t)

	d.Dispatch(1, "ăn phở 50k", insertAction(amt(50000), "Ăn uống"), nil)
	last, _ := db.GetLast(1)

	reply := d.Dispatch(1, "xóa cái vừa rồi", &ai.Action{Kind: ai.ActionDelete, Type: storage.TypeExpense}, last)
	if !strings.Contains(reply.Text, "Đã xóa") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}

	// Same snapshot again: the row is already deleted.
	reply = d.Dispatch(1, "xóa cái vừa rồi", &ai.Action{Kind: ai.ActionUndo, Type: storage.TypeExpense}, last)
	if !strings.Contains(reply.Text, "Không thể xóa") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
}

func TestQueryEmptyAndListing(t *testing.T) {
	d, _ := newTestDispatcher(t)

	query := &ai.Action{Kind: ai.ActionQuery, Limit: ai.DefaultLimit, Type: storage.TypeExpense}
	reply := d.Dispatch(1, "xem giao dịch", query, nil)
	if !strings.Contains(reply.Text, "Chưa có giao dịch") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}

	d.Dispatch(1, "ăn phở 50k", insertAction(amt(50000), "Ăn uống"), nil)
	d.Dispatch(1, "cafe 35k", insertAction(amt(35000), "Ăn uống"), nil)

	reply = d.Dispatch(1, "xem giao dịch", query, nil)
	if !strings.Contains(reply.Text, "2 giao dịch") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "ăn phở 50k") || !strings.Contains(reply.Text, "cafe 35k") {
		t.Fatalf("listing incomplete: %q", reply.Text)
	}
}

func TestReportEmptyAndTotals(t *testing.T) {
	d, _ := newTestDispatcher(t)

	report := &ai.Action{Kind: ai.ActionReport, Period: ai.ReportDay, Type: storage.TypeExpense}
	reply := d.Dispatch(1, "hôm nay chi bao nhiêu", report, nil)
	if !strings.Contains(reply.Text, "Chưa có giao dịch hôm nay") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}

	d.Dispatch(1, "ăn phở 50k", insertAction(amt(50000), "Ăn uống"), nil)
	inc := insertAction(amt(1000000), "Lương")
	inc.Type = storage.TypeIncome
	d.Dispatch(1, "nhận lương 1tr", inc, nil)

	reply = d.Dispatch(1, "hôm nay chi bao nhiêu", report, nil)
	for _, want := range []string{"Báo cáo hôm nay", "50.000", "1.000.000", "950.000", "Ăn uống"} {
		if !strings.Contains(reply.Text, want) {
			t.Fatalf("report missing %q: %q", want, reply.Text)
		}
	}
}

func TestExportEmptyAndFile(t *testing.T) {
	d, _ := newTestDispatcher(t)

	reply := d.Dispatch(1, "xuất file", &ai.Action{Kind: ai.ActionExport, Type: storage.TypeExpense}, nil)
	if reply.FileData != nil || !strings.Contains(reply.Text, "Chưa có dữ liệu") {
		t.Fatalf("expected no file for empty ledger: %+v", reply)
	}

	d.Dispatch(1, "ăn phở 50k", insertAction(amt(50000), "Ăn uống"), nil)

	reply = d.Dispatch(1, "xuất file", &ai.Action{Kind: ai.ActionExport, Type: storage.TypeExpense}, nil)
	if reply.FileData == nil {
		t.Fatal("expected an attached file")
	}
	if !strings.HasPrefix(reply.FileName, "fingo_") || !strings.HasSuffix(reply.FileName, ".csv") {
		t.Fatalf("unexpected file name: %q", reply.FileName)
	}
	if !strings.Contains(string(reply.FileData), "Date,Type,Category,Amount,Note") {
		t.Fatalf("csv header missing: %q", string(reply.FileData))
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	d, db := newTestDispatcher(t)

	d.Dispatch(1, "ăn phở 50k", insertAction(amt(50000), "Ăn uống"), nil)
	d.Dispatch(1, "cafe 35k", insertAction(amt(35000), "Ăn uống"), nil)

	clear := &ai.Action{Kind: ai.ActionClear, Type: storage.TypeExpense}
	reply := d.Dispatch(1, "xóa hết", clear, nil)
	if !strings.Contains(reply.Text, "xác nhận") {
		t.Fatalf("expected confirmation prompt: %q", reply.Text)
	}
	if txs, _ := db.Find(1, "", "", time.Time{}, 10); len(txs) != 2 {
		t.Fatalf("rows must survive unconfirmed clear, got %d", len(txs))
	}

	reply = d.Dispatch(1, "xóa hết xác nhận", clear, nil)
	if !strings.Contains(reply.Text, "Đã xóa 2 giao dịch") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
	if txs, _ := db.Find(1, "", "", time.Time{}, 10); len(txs) != 0 {
		t.Fatalf("rows survived confirmed clear: %d", len(txs))
	}
}

func TestHelpAndUnknown(t *testing.T) {
	d, _ := newTestDispatcher(t)

	reply := d.Dispatch(1, "/help", &ai.Action{Kind: ai.ActionHelp, Type: storage.TypeExpense}, nil)
	if reply.Text != HelpText {
		t.Fatalf("unexpected help reply: %q", reply.Text)
	}

	reply = d.Dispatch(1, "blah", &ai.Action{Kind: ai.ActionUnknown, Message: "thử lại nhé", Type: storage.TypeExpense}, nil)
	if reply.Text != "thử lại nhé" {
		t.Fatalf("resolver message not passed through: %q", reply.Text)
	}

	reply = d.Dispatch(1, "blah", &ai.Action{Kind: ai.ActionUnknown, Type: storage.TypeExpense}, nil)
	if reply.Text != fallbackText {
		t.Fatalf("unexpected fallback: %q", reply.Text)
	}
}

func TestInsertFromImage(t *testing.T) {
	d, db := newTestDispatcher(t)

	reply := d.InsertFromImage(1, &ai.Action{Kind: ai.ActionInsert, Type: storage.TypeExpense})
	if !strings.Contains(reply.Text, "Không đọc được") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
	if last, _ := db.GetLast(1); last != nil {
		t.Fatalf("failed bill read must not insert, got %+v", last)
	}

	act := &ai.Action{Kind: ai.ActionInsert, Amount: amt(120000), Category: "Hóa đơn", Type: storage.TypeExpense}
	reply = d.InsertFromImage(1, act)
	if !strings.Contains(reply.Text, "Đã ghi từ bill") {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
	last, _ := db.GetLast(1)
	if last == nil || last.Amount != 120000 || last.Note != "Từ bill" {
		t.Fatalf("wrong stored bill transaction: %+v", last)
	}
}
