package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/chat"
	"github.com/xaenox/growth-hub/internal/conversation"
	"github.com/xaenox/growth-hub/internal/llm"
	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/redact"
	"github.com/xaenox/growth-hub/internal/session"
	"github.com/xaenox/growth-hub/internal/usage"
)

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to Growth Hub! 🌱
I'm a coaching companion for clarity, emotional regulation and character.

Just send me a message to talk. Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
	for _, d := range chat.Disclaimers() {
		b.sendMessage(message.Chat.ID, d)
	}
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message

Conversations:
/new [nomemory] - Save this conversation and start fresh
/history - List saved conversations
/load <n> - Continue a saved conversation
/rename <n> <title> - Rename a saved conversation
/memory <n> on|off - Include or exclude it from long-term memory
/forget <n> - Delete a saved conversation
/summary - Show long-term memory
/bookmark - Bookmark the last reply
/bookmarks - Show bookmarked replies

Coach:
/persona [<slider> <0-100>] - warmth, firmness, verbosity, humor, directness
/tone gentle|balanced|direct|off
/profile [<field> <value>] - name, age, relationship, challenges, goals, context

Provider:
/provider <openai|groq|openrouter> [model]
/key <api key>
/test - Test the connection

Account:
/usage - Show token usage
/trial <email> - Start the free trial
/upgrade - Upgrade to GrowthPlus
/session on|off - Session mode keeps nothing on the server
/ok - Dismiss the crisis warning`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleNew(message *tgbotapi.Message, s *session.Session, args string) {
	include := !strings.EqualFold(args, "nomemory")
	record := s.Archive(include)
	if record == nil {
		b.sendMessage(message.Chat.ID, "Nothing to save yet. Let's talk!")
		return
	}

	note := "included in long-term memory"
	if !include {
		note = "not included in long-term memory"
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Saved %q (%s). Starting a fresh conversation.", record.Title, note))
}

func (b *Bot) handleHistory(message *tgbotapi.Message, s *session.Session) {
	records := s.Store.Conversations()
	if len(records) == 0 {
		b.sendMessage(message.Chat.ID, "You don't have any saved conversations yet. Use /new to save one.")
		return
	}
	b.sendMarkdown(message.Chat.ID, formatHistory(records))
}

// conversationAt resolves a 1-based position from /history.
func (b *Bot) conversationAt(message *tgbotapi.Message, s *session.Session, arg string) (models.ConversationRecord, bool) {
	records := s.Store.Conversations()
	if len(records) == 0 {
		b.sendMessage(message.Chat.ID, "You don't have any saved conversations yet.")
		return models.ConversationRecord{}, false
	}
	i, err := parseIndex(arg, len(records))
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, err.Error())
		return models.ConversationRecord{}, false
	}
	return records[i], true
}

func (b *Bot) reportStoreError(message *tgbotapi.Message, err error) {
	if errors.Is(err, conversation.ErrConversationNotFound) {
		b.sendErrorMessage(message.Chat.ID, "That conversation no longer exists. Check /history.")
		return
	}
	b.logger.Error("Conversation update failed", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
	b.sendErrorMessage(message.Chat.ID, err.Error())
}

func (b *Bot) handleLoad(message *tgbotapi.Message, s *session.Session, args string) {
	record, ok := b.conversationAt(message, s, args)
	if !ok {
		return
	}
	if err := s.Store.LoadConversation(record.ID); err != nil {
		b.reportStoreError(message, err)
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Loaded %q with its last %d messages. Carry on!", record.Title, len(record.Messages)))
}

func (b *Bot) handleRename(message *tgbotapi.Message, s *session.Session, args string) {
	pos, title, _ := strings.Cut(args, " ")
	record, ok := b.conversationAt(message, s, pos)
	if !ok {
		return
	}
	if err := s.Store.RenameConversation(record.ID, title); err != nil {
		b.reportStoreError(message, err)
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Renamed to %q.", strings.TrimSpace(title)))
}

func (b *Bot) handleMemory(message *tgbotapi.Message, s *session.Session, args string) {
	pos, flag, _ := strings.Cut(args, " ")
	include, err := parseSwitch(flag)
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, "Usage: /memory <n> on|off")
		return
	}
	record, ok := b.conversationAt(message, s, pos)
	if !ok {
		return
	}
	if err := s.Store.SetConversationMemoryFlag(record.ID, include); err != nil {
		b.reportStoreError(message, err)
		return
	}
	if include {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("%q is now part of long-term memory.", record.Title))
	} else {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("%q is no longer part of long-term memory.", record.Title))
	}
}

func (b *Bot) handleForget(message *tgbotapi.Message, s *session.Session, args string) {
	record, ok := b.conversationAt(message, s, args)
	if !ok {
		return
	}
	if err := s.Store.DeleteConversation(record.ID); err != nil {
		b.reportStoreError(message, err)
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Deleted %q.", record.Title))
}

func (b *Bot) handleSummary(message *tgbotapi.Message, s *session.Session) {
	summary := s.Store.LongTermSummary()
	if summary == "" {
		b.sendMessage(message.Chat.ID, "No long-term memory yet. Save a conversation with /new to build it.")
		return
	}
	b.sendMessage(message.Chat.ID, "Long-term memory:\n\n"+summary)
}

func (b *Bot) handleBookmark(message *tgbotapi.Message, s *session.Session) {
	msgs := s.Store.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != models.RoleAssistant {
			continue
		}
		on, err := s.Store.ToggleBookmark(msgs[i].ID)
		if err != nil {
			b.sendErrorMessage(message.Chat.ID, err.Error())
			return
		}
		if on {
			b.sendMessage(message.Chat.ID, "🔖 Bookmarked the last reply.")
		} else {
			b.sendMessage(message.Chat.ID, "Bookmark removed.")
		}
		return
	}
	b.sendMessage(message.Chat.ID, "There is no reply to bookmark yet.")
}

func (b *Bot) handleBookmarks(message *tgbotapi.Message, s *session.Session) {
	var lines []string
	for _, m := range s.Store.Messages() {
		if m.Bookmarked {
			lines = append(lines, "🔖 "+m.Content)
		}
	}
	if len(lines) == 0 {
		b.sendMessage(message.Chat.ID, "No bookmarks in this conversation.")
		return
	}
	b.sendMessage(message.Chat.ID, strings.Join(lines, "\n\n"))
}

func (b *Bot) handlePersona(message *tgbotapi.Message, s *session.Session, args string) {
	if args == "" {
		b.sendMessage(message.Chat.ID, formatPersona(s.Store.Settings().PersonaConfig))
		return
	}

	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.sendErrorMessage(message.Chat.ID, "Usage: /persona <slider> <0-100>")
		return
	}
	value, err := strconv.Atoi(fields[1])
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, "The value must be a number from 0 to 100.")
		return
	}

	var applyErr error
	settings := s.Store.UpdateSettings(func(st *models.Settings) {
		applyErr = applyPersona(&st.PersonaConfig, fields[0], value)
	})
	if applyErr != nil {
		b.sendErrorMessage(message.Chat.ID, applyErr.Error())
		return
	}
	b.sendMessage(message.Chat.ID, formatPersona(settings.PersonaConfig))
}

func (b *Bot) handleTone(message *tgbotapi.Message, s *session.Session, args string) {
	tone, err := parseTone(args)
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, err.Error())
		return
	}
	s.Store.UpdateSettings(func(st *models.Settings) {
		st.PersonaConfig.Tone = tone
	})
	if tone == models.ToneUnset {
		b.sendMessage(message.Chat.ID, "Tone cleared.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Tone set to %s.", tone))
}

func (b *Bot) handleProfile(message *tgbotapi.Message, s *session.Session, args string) {
	if args == "" {
		b.sendMessage(message.Chat.ID, formatProfile(s.Store.Settings().UserProfile))
		return
	}
	if strings.EqualFold(args, "clear") {
		s.Store.UpdateSettings(func(st *models.Settings) {
			st.UserProfile = models.UserProfile{}
		})
		b.sendMessage(message.Chat.ID, "Profile cleared.")
		return
	}

	field, value, _ := strings.Cut(args, " ")
	var applyErr error
	settings := s.Store.UpdateSettings(func(st *models.Settings) {
		applyErr = applyProfile(&st.UserProfile, field, value)
	})
	if applyErr != nil {
		b.sendErrorMessage(message.Chat.ID, applyErr.Error())
		return
	}
	b.sendMessage(message.Chat.ID, formatProfile(settings.UserProfile))
}

func (b *Bot) handleProvider(message *tgbotapi.Message, s *session.Session, args string) {
	if args == "" {
		cfg := s.Store.Settings().APIConfig
		if cfg.Provider == models.ProviderNone {
			b.sendMessage(message.Chat.ID, "No provider set. Use /provider <openai|groq|openrouter> [model].")
			return
		}
		model := cfg.Model
		if model == "" {
			model = llm.DefaultModel(cfg.Provider) + " (default)"
		}
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Provider: %s\nModel: %s\nKey: %s",
			llm.ProviderName(cfg.Provider), model, redact.Key(cfg.APIKey)))
		return
	}

	name, model, _ := strings.Cut(args, " ")
	provider := models.Provider(strings.ToLower(name))
	if !llm.Supported(provider) {
		b.sendErrorMessage(message.Chat.ID, "Provider must be openai, groq or openrouter.")
		return
	}
	settings := s.Store.UpdateSettings(func(st *models.Settings) {
		if st.APIConfig.Provider != provider {
			st.APIConfig.APIKey = ""
		}
		st.APIConfig.Provider = provider
		st.APIConfig.Model = strings.TrimSpace(model)
	})

	text := fmt.Sprintf("Provider set to %s.", llm.ProviderName(provider))
	if settings.APIConfig.APIKey == "" {
		text += " Now send your key with /key <api key>."
	}
	b.sendMessage(message.Chat.ID, text)
}

func (b *Bot) handleKey(message *tgbotapi.Message, s *session.Session, args string) {
	// the key should not stay in the chat history
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(message.Chat.ID, message.MessageID)); err != nil {
		b.logger.Warn("Failed to delete key message", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
	}

	if args == "" {
		b.sendErrorMessage(message.Chat.ID, "Usage: /key <api key>")
		return
	}
	settings := s.Store.UpdateSettings(func(st *models.Settings) {
		st.APIConfig.APIKey = args
	})
	if settings.APIConfig.Provider == models.ProviderNone {
		b.sendMessage(message.Chat.ID, "Key saved. Pick a provider with /provider <openai|groq|openrouter>.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Key %s saved for %s. Use /test to check it.",
		redact.Key(args), llm.ProviderName(settings.APIConfig.Provider)))
}

func (b *Bot) handleTest(ctx context.Context, message *tgbotapi.Message, s *session.Session) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	res := b.sessions.Client().TestConnection(ctx, s.Store.Settings().APIConfig)
	if !res.Success {
		b.sendErrorMessage(message.Chat.ID, "Connection failed: "+res.Message)
		return
	}
	b.sendMessage(message.Chat.ID, "✅ "+res.Message)
}

func (b *Bot) handleUsage(ctx context.Context, message *tgbotapi.Message, s *session.Session) {
	b.sendMessage(message.Chat.ID, formatUsage(s.Usage.Summary(ctx)))
}

func (b *Bot) handleUpgrade(ctx context.Context, message *tgbotapi.Message, s *session.Session) {
	u := s.Usage.UpgradeToPaid(ctx)
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Welcome to GrowthPlus! Your limit is now %d tokens.", u.TotalTokenLimit))
}

func (b *Bot) handleTrial(ctx context.Context, message *tgbotapi.Message, s *session.Session, args string) {
	u, err := s.Usage.InitializeTrial(ctx, args)
	if errors.Is(err, usage.ErrInvalidEmail) {
		b.sendErrorMessage(message.Chat.ID, "Usage: /trial <email>")
		return
	}
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, err.Error())
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Your free trial is active with %d tokens (about %d words).",
		u.TotalTokenLimit, usage.EstimateWords(u.TotalTokenLimit)))
}

func (b *Bot) handleSessionMode(message *tgbotapi.Message, s *session.Session, args string) {
	on, err := parseSwitch(args)
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, "Usage: /session on|off")
		return
	}
	s.Store.UpdateSettings(func(st *models.Settings) {
		st.SessionMode = on
	})
	if on {
		b.sendMessage(message.Chat.ID, "Session mode on. Your key, messages and memory are no longer saved and will be gone after a restart.")
		return
	}
	b.sendMessage(message.Chat.ID, "Session mode off. Your conversations are saved again.")
}
