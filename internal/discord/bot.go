package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/vinhng/fingo/internal/ai"
	"github.com/vinhng/fingo/internal/config"
	"github.com/vinhng/fingo/internal/dispatch"
	"github.com/vinhng/fingo/internal/storage"
)

// Bot is the chat transport: it turns Discord messages and photo
// attachments into resolver/dispatcher turns and sends the replies back.
type Bot struct {
	session    *discordgo.Session
	db         *storage.Database
	resolver   *ai.Resolver
	dispatcher *dispatch.Dispatcher
	channelID  string
	healthAddr string
	startTime  time.Time
	log        zerolog.Logger
}

func NewBot(cfg *config.Config, db *storage.Database, resolver *ai.Resolver, log zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	bot := &Bot{
		session:    session,
		db:         db,
		resolver:   resolver,
		dispatcher: dispatch.New(db, log),
		channelID:  cfg.DiscordChannelId,
		healthAddr: cfg.HealthAddr,
		startTime:  time.Now(),
		log:        log,
	}

	session.AddHandler(bot.handleMessage)
	session.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	return bot, nil
}

func (b *Bot) Start() error {
	go b.startHealthServer()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return nil
}

func (b *Bot) Stop() {
	b.session.Close()
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return //bot's messages
	}
	if m.ChannelID != b.channelID {
		return //specific to the channel
	}

	userID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		b.log.Warn().Str("author", m.Author.ID).Msg("non-numeric author id")
		return
	}

	for _, att := range m.Attachments {
		if strings.HasPrefix(att.ContentType, "image/") {
			b.handlePhoto(s, m, userID, att)
			return
		}
	}

	text := strings.TrimSpace(m.Content)
	if text == "" {
		return
	}
	b.handleText(s, m, userID, text)
}

func (b *Bot) handleText(s *discordgo.Session, m *discordgo.MessageCreate, userID int64, text string) {
	if text == "/start" || text == "/help" {
		b.send(s, m.ChannelID, dispatch.Reply{Text: dispatch.HelpText})
		return
	}

	// One snapshot per turn: the same last transaction feeds both the model
	// context and the dispatcher's disambiguation.
	last, err := b.db.GetLast(userID)
	if err != nil {
		b.log.Error().Err(err).Int64("user", userID).Msg("failed to load last transaction")
	}
	var lastCtx *ai.LastTransaction
	if last != nil {
		lastCtx = &ai.LastTransaction{ID: last.ID, Amount: last.Amount, Note: last.Note}
	}

	act := b.resolver.Resolve(context.Background(), text, lastCtx)
	b.log.Info().Int64("user", userID).Str("action", string(act.Kind)).Msg("turn resolved")

	b.send(s, m.ChannelID, b.dispatcher.Dispatch(userID, text, act, last))
}

func (b *Bot) handlePhoto(s *discordgo.Session, m *discordgo.MessageCreate, userID int64, att *discordgo.MessageAttachment) {
	b.send(s, m.ChannelID, dispatch.Reply{Text: "🔍 Đang đọc bill..."})

	image, err := b.downloadAttachment(att.URL)
	if err != nil {
		b.log.Error().Err(err).Str("url", att.URL).Msg("attachment download failed")
		b.send(s, m.ChannelID, dispatch.Reply{Text: "❌ Không đọc được. Thử ghi thủ công."})
		return
	}

	act := b.resolver.ResolveImage(context.Background(), image)
	b.log.Info().Int64("user", userID).Msg("bill photo resolved")

	b.send(s, m.ChannelID, b.dispatcher.InsertFromImage(userID, act))
}

func (b *Bot) downloadAttachment(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment fetch returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bot) send(s *discordgo.Session, channelID string, reply dispatch.Reply) {
	var err error
	if reply.FileData != nil {
		_, err = s.ChannelFileSendWithMessage(channelID, reply.Text, reply.FileName, bytes.NewReader(reply.FileData))
	} else {
		_, err = s.ChannelMessageSend(channelID, reply.Text)
	}
	if err != nil {
		b.log.Error().Err(err).Msg("failed to send reply")
	}
}

func (b *Bot) startHealthServer() {
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(b.startTime)
		status := "healthy"

		// Check if Discord connection is alive
		if b.session == nil || b.session.State == nil {
			status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		response := fmt.Sprintf(`{
			"status": "%s",
			"uptime": "%s",
			"discord_connected": %t,
			"timestamp": "%s"
		}`, status, uptime.String(), b.session != nil && b.session.State != nil, time.Now().Format(time.RFC3339))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(response))
	})

	if err := http.ListenAndServe(b.healthAddr, nil); err != nil {
		b.log.Error().Err(err).Msg("health server stopped")
	}
}
