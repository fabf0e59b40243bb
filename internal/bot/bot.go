package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/chat"
	"github.com/xaenox/growth-hub/internal/safety"
	"github.com/xaenox/growth-hub/internal/session"
)

type Bot struct {
	api           *tgbotapi.BotAPI
	sessions      *session.Manager
	updateTimeout int
	logger        *zap.Logger
}

func New(token string, sessions *session.Manager, updateTimeout int, debug bool, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug

	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	return &Bot{
		api:           api,
		sessions:      sessions,
		updateTimeout: updateTimeout,
		logger:        logger,
	}, nil
}

// Start polls for updates until ctx is cancelled. Each update is handled on
// its own goroutine; sends within one chat are serialized by the session.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.updateTimeout

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("update channel closed")
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

// typingNotifier shows the typing indicator while a reply is pending.
type typingNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func (n typingNotifier) PlayTone(kind chat.ToneKind) {
	if kind != chat.ToneSend {
		return
	}
	if _, err := n.api.Request(tgbotapi.NewChatAction(n.chatID, tgbotapi.ChatTyping)); err != nil {
		n.logger.Debug("Failed to send chat action", zap.Error(err), zap.Int64("chat_id", n.chatID))
	}
}

func (b *Bot) session(chatID int64) *session.Session {
	return b.sessions.Get(strconv.FormatInt(chatID, 10), typingNotifier{
		api:    b.api,
		chatID: chatID,
		logger: b.logger,
	})
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in message handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", message.Chat.ID))
		}
	}()

	s := b.session(message.Chat.ID)

	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message, s)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		b.sendMessage(message.Chat.ID, "I can only read text for now.")
		return
	}

	res, err := s.Chat.Send(ctx, content)
	switch {
	case errors.Is(err, chat.ErrBusy):
		b.sendMessage(message.Chat.ID, "⏳ I'm still answering your last message.")
		return
	case errors.Is(err, chat.ErrEmptyMessage):
		return
	case errors.Is(err, chat.ErrConfig):
		b.sendErrorMessage(message.Chat.ID, res.Notice+"\nUse /provider <openai|groq|openrouter> [model] and then /key <api key>.")
		return
	case errors.Is(err, chat.ErrTrialExhausted):
		b.sendErrorMessage(message.Chat.ID, res.Notice+"\n\nUse /upgrade or set your own key with /provider and /key.")
		return
	}

	if res == nil {
		b.logger.Error("Send returned no result", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, something went wrong. Please try again.")
		return
	}

	if res.Reply != nil {
		b.sendReply(message.Chat.ID, message.MessageID, res.Reply.Content)
	}
	if res.Verdict == safety.Crisis {
		b.sendMessage(message.Chat.ID, "This warning stays on until you dismiss it with /ok.")
	}
	if err != nil && res.Notice != "" {
		b.sendErrorMessage(message.Chat.ID, res.Notice)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message, s *session.Session) {
	args := strings.TrimSpace(message.CommandArguments())
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "new":
		b.handleNew(message, s, args)
	case "history":
		b.handleHistory(message, s)
	case "load":
		b.handleLoad(message, s, args)
	case "rename":
		b.handleRename(message, s, args)
	case "memory":
		b.handleMemory(message, s, args)
	case "forget":
		b.handleForget(message, s, args)
	case "summary":
		b.handleSummary(message, s)
	case "bookmark":
		b.handleBookmark(message, s)
	case "bookmarks":
		b.handleBookmarks(message, s)
	case "persona":
		b.handlePersona(message, s, args)
	case "tone":
		b.handleTone(message, s, args)
	case "profile":
		b.handleProfile(message, s, args)
	case "provider":
		b.handleProvider(message, s, args)
	case "key":
		b.handleKey(message, s, args)
	case "test":
		b.handleTest(ctx, message, s)
	case "usage":
		b.handleUsage(ctx, message, s)
	case "upgrade":
		b.handleUpgrade(ctx, message, s)
	case "trial":
		b.handleTrial(ctx, message, s, args)
	case "ok":
		s.Chat.DismissCrisisWarning()
		b.sendMessage(message.Chat.ID, "Warning dismissed. I'm here when you want to talk.")
	case "session":
		b.handleSessionMode(message, s, args)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

// sendMessage sends text, split over several messages when it is too long
// for one.
func (b *Bot) sendMessage(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("Failed to send message",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
			return
		}
	}
}

// sendReply quotes replyToID on the first part only.
func (b *Bot) sendReply(chatID int64, replyToID int, text string) {
	for i, part := range splitMessage(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == 0 {
			msg.ReplyToMessageID = replyToID
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("Failed to send reply",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
			return
		}
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "MarkdownV2"
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("Failed to send markdown message",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
			return
		}
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
