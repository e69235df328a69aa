package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/vinhng/fingo/internal/categories"
)

// systemInstruction is the static contract with the model: allowed actions,
// the JSON shape, the category vocabulary, Vietnamese currency shorthand and
// date-offset rules. All semantic parsing happens on the model side; the
// resolver only sanitizes what comes back.
var systemInstruction = `Bạn là trợ lý tài chính. Phân tích tin nhắn và trả về JSON action.

**ACTIONS:**
- "insert": Thêm giao dịch mới
- "update": Sửa giao dịch đã có
- "delete": Xóa giao dịch
- "query": Xem/tìm kiếm giao dịch
- "report": Xem báo cáo
- "export": Xuất dữ liệu
- "clear": Xóa tất cả
- "undo": Hoàn tác
- "help": Xem hướng dẫn
- "unknown": Không hiểu

**JSON FORMAT:**
{
    "action": "<action>",
    "amount": <số tiền đã convert | null>,
    "category": "<danh mục | null>",
    "note": "<ghi chú | null>",
    "type": "thu" | "chi" | null,
    "transaction_id": <id | null>,
    "date_offset": <0 = hôm nay, 1 = hôm qua, 2 = hôm kia | 0>,
    "time_of_day": "<sáng|trưa|chiều|tối | null>",
    "keyword": "<từ khóa | null>",
    "report_type": "day" | "week" | "month" | null,
    "limit": <số lượng | 10>,
    "message": "<tin nhắn cho user | null>"
}

**CATEGORIES:**
Chi: ` + strings.Join(categories.Expense, ", ") + `
Thu: ` + strings.Join(categories.Income, ", ") + `

**TIỀN VN:** k=x1000, tr/triệu=x1000000, củ/lúa=x1000000

**THU/CHI:** Mặc định "chi". "thu" khi có: lương, thưởng, được cho, nhận được, hoàn tiền, bán được

**CHỈ TRẢ VỀ JSON.**
`

// LastTransaction is the conversational context line fed to the model so it
// can resolve implicit references like "xóa cái vừa rồi".
type LastTransaction struct {
	ID     int64
	Amount float64
	Note   string
}

// Resolver turns raw text or image bytes into an Action via the external
// model. It never returns an error to callers: anything that goes wrong with
// the call or the response degrades to the unknown action.
type Resolver struct {
	client   *genai.Client
	model    string
	timeout  time.Duration
	debugDir string
	log      zerolog.Logger
}

func NewResolver(ctx context.Context, apiKey, model string, timeout time.Duration, debugDir string, log zerolog.Logger) (*Resolver, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if debugDir != "" {
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create debug directory: %w", err)
		}
	}
	return &Resolver{
		client:   client,
		model:    model,
		timeout:  timeout,
		debugDir: debugDir,
		log:      log,
	}, nil
}

// Resolve interprets a text message, optionally prefixed with the user's
// last transaction for disambiguation context.
func (r *Resolver) Resolve(ctx context.Context, text string, last *LastTransaction) *Action {
	prompt := text
	if last != nil {
		prompt = fmt.Sprintf("[Last TX: #%d %.0f %s]\n%s", last.ID, last.Amount, last.Note, text)
	}

	parts := []*genai.Part{{Text: prompt}}
	return r.generate(ctx, parts)
}

// ResolveImage interprets a bank bill photo. The action kind is forced to
// insert regardless of what the model reports; a missing or non-positive
// amount is the caller's signal that the bill could not be read.
func (r *Resolver) ResolveImage(ctx context.Context, image []byte) *Action {
	parts := []*genai.Part{
		{Text: "Đây là bill ngân hàng. Trích xuất thông tin giao dịch:"},
		{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: image}},
	}
	act := r.generate(ctx, parts)
	act.Kind = ActionInsert
	return act
}

func (r *Resolver) generate(ctx context.Context, parts []*genai.Part) *Action {
	now := time.Now()

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Temperature:       genai.Ptr[float32](0.1),
	}

	resp, err := r.client.Models.GenerateContent(cctx, r.model, contents, cfg)
	if err != nil {
		r.log.Warn().Err(err).Msg("model call failed")
		return Unknown(now)
	}

	raw := resp.Text()
	r.debugDump("response.txt", raw)
	if raw == "" {
		r.log.Warn().Msg("empty model response")
		return Unknown(now)
	}

	data, ok := extractJSON(raw)
	if !ok {
		r.log.Warn().Str("response", raw).Msg("unparseable model response")
		return Unknown(now)
	}
	return actionFromPayload(data, now)
}

func (r *Resolver) debugDump(name, content string) {
	if r.debugDir == "" {
		return
	}
	path := filepath.Join(r.debugDir, time.Now().Format("20060102_150405_")+name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.log.Debug().Err(err).Msg("debug dump failed")
	}
}
