// Package telegram runs the command dispatcher behind a long-polling
// Telegram bot.
package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"cstats-bot/internal/command"
	"cstats-bot/internal/config"
	"cstats-bot/internal/constants"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Dispatcher interface {
	Handle(ctx context.Context, inv command.Invocation) command.Reply
}

// sender is the part of *tgbotapi.BotAPI the dispatch loop needs. Chat
// actions go through Request because Telegram answers them with true, not a
// Message.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api        *tgbotapi.BotAPI
	sender     sender
	dispatcher Dispatcher
	prefix     string
	workers    int
	logger     zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New connects to Telegram. It returns nil when no token is configured.
func New(cfg *config.Config, dispatcher *command.Dispatcher, logger zerolog.Logger) (*Bot, error) {
	if cfg.TelegramToken == "" {
		logger.Info().Msg("TELEGRAM_BOT_TOKEN not set, telegram disabled")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("username", api.Self.UserName).Msg("telegram bot authorized")

	return &Bot{
		api:        api,
		sender:     api,
		dispatcher: dispatcher,
		prefix:     cfg.CommandPrefix,
		workers:    cfg.TelegramWorkers,
		logger:     logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// Start begins long polling in the background.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = constants.TelegramTimeout
	u.AllowedUpdates = []string{"message"}
	updates := b.api.GetUpdatesChan(u)

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		if err := b.dispatch(runCtx, updates); err != nil {
			b.logger.Error().Err(err).Msg("telegram dispatch stopped")
		}
	}()

	b.logger.Info().Int("workers", b.workers).Msg("telegram polling started")
	return nil
}

// Stop ends polling and waits for in-flight commands until ctx expires.
func (b *Bot) Stop(ctx context.Context) error {
	b.once.Do(b.api.StopReceivingUpdates)

	select {
	case <-b.done:
	case <-ctx.Done():
		b.cancel()
		return ctx.Err()
	}
	b.cancel()
	b.logger.Info().Msg("telegram polling stopped")
	return nil
}

// dispatch handles updates until the channel closes, at most b.workers at a time.
func (b *Bot) dispatch(ctx context.Context, updates <-chan tgbotapi.Update) error {
	g, gctx := errgroup.WithContext(ctx)
	if b.workers > 0 {
		g.SetLimit(b.workers)
	}

	for update := range updates {
		msg := update.Message
		if msg == nil {
			continue
		}
		inv, ok := InvocationFromMessage(msg, b.prefix)
		if !ok {
			continue
		}
		g.Go(func() error {
			b.handle(gctx, msg, inv)
			return nil
		})
	}
	return g.Wait()
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message, inv command.Invocation) {
	log := b.logger.With().Int64("chat_id", msg.Chat.ID).Int("message_id", msg.MessageID).Logger()

	if _, err := b.sender.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		log.Debug().Err(err).Msg("failed to send typing action")
	}

	reply := b.dispatcher.Handle(log.WithContext(ctx), inv)
	if !reply.Handled() || reply.Text == "" {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply.Text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.sender.Send(out); err != nil {
		log.Error().Err(err).Str("invocation_id", reply.InvocationID).Msg("failed to send reply")
	}
}

// InvocationFromMessage converts a Telegram message into a command invocation.
// It reports false for messages that are not bot commands. A bot_command
// entity counts as carrying the wake prefix; any other text must start with
// wake itself. A mentioned member comes from a text_mention entity, or else
// from the author of the message being replied to; plain @username mentions
// carry no user id.
func InvocationFromMessage(msg *tgbotapi.Message, wake string) (command.Invocation, bool) {
	if msg.From == nil || msg.From.IsBot {
		return command.Invocation{}, false
	}

	text := strings.TrimSpace(msg.Text)
	if msg.IsCommand() {
		text = strings.TrimSpace(wake + msg.Command() + " " + msg.CommandArguments())
	}
	if kind, _ := command.Classify(text, wake); kind == command.KindUnknown {
		return command.Invocation{}, false
	}

	inv := command.Invocation{
		Text:       text,
		SenderID:   strconv.FormatInt(msg.From.ID, 10),
		SenderName: msg.From.String(),
	}

	for _, e := range msg.Entities {
		if e.Type == "text_mention" && e.User != nil {
			inv.MentionedID = strconv.FormatInt(e.User.ID, 10)
			return inv, true
		}
	}
	if r := msg.ReplyToMessage; r != nil && r.From != nil && !r.From.IsBot {
		inv.MentionedID = strconv.FormatInt(r.From.ID, 10)
	}
	return inv, true
}
