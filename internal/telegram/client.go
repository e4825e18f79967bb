// Package telegram delivers fixture alerts through the Telegram Bot API.
// The client is a monitor sink: outcome events are queued and sent by a single
// background goroutine with retry, so a slow Telegram API never stalls a
// fixture monitor.
package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/statwatch/internal/logger"
	"github.com/rewired-gh/statwatch/internal/models"
)

// ErrClosed is returned by Send once the client has been closed.
var ErrClosed = errors.New("telegram client closed")

// sender is the part of *tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Options tunes delivery
type Options struct {
	MaxRetries     int
	RetryDelayBase time.Duration
	QueueSize      int
	// NotifyFinished also sends FINISHED outcomes. ALERTED is always sent.
	NotifyFinished bool
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	notifyFinished bool

	mu     sync.Mutex
	closed bool
	queue  chan models.OutcomeEvent
	done   chan struct{}
}

// NewClient creates a new Telegram client and starts its delivery goroutine.
func NewClient(botToken, chatID string, opts Options) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	return newClient(bot, chatIDInt, opts), nil
}

func newClient(bot sender, chatID int64, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelayBase <= 0 {
		opts.RetryDelayBase = time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	c := &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     opts.MaxRetries,
		retryDelayBase: opts.RetryDelayBase,
		notifyFinished: opts.NotifyFinished,
		queue:          make(chan models.OutcomeEvent, opts.QueueSize),
		done:           make(chan struct{}),
	}
	go c.loop()
	return c
}

// ConditionUpdate is a no-op; only outcomes are delivered.
func (c *Client) ConditionUpdate(models.ConditionEvent) {}

// FixtureOutcome queues an outcome for delivery. It never blocks: when the
// queue is full the event is dropped with a warning.
func (c *Client) FixtureOutcome(ev models.OutcomeEvent) {
	if !c.wants(ev.Outcome) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		logger.Warn("Telegram client closed, dropping %s notification for fixture %s", ev.Outcome, ev.Fixture)
		return
	}
	select {
	case c.queue <- ev:
	default:
		logger.Warn("Telegram queue full, dropping %s notification for fixture %s", ev.Outcome, ev.Fixture)
	}
}

func (c *Client) wants(o models.Outcome) bool {
	switch o {
	case models.OutcomeAlerted:
		return true
	case models.OutcomeFinished:
		return c.notifyFinished
	default:
		return false
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// delivery goroutine to exit.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Client) loop() {
	defer close(c.done)
	for ev := range c.queue {
		if err := c.deliver(ev); err != nil {
			logger.Error("Failed to send Telegram notification for fixture %s: %v", ev.Fixture, err)
			continue
		}
		logger.Info("Sent Telegram %s notification for fixture %s", ev.Outcome, ev.Fixture)
	}
}

// Send delivers one outcome synchronously with retry
func (c *Client) Send(ev models.OutcomeEvent) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return c.deliver(ev)
}

// deliver sends without checking Close so the queue can drain after it.
func (c *Client) deliver(ev models.OutcomeEvent) error {
	msg := tgbotapi.NewMessage(c.chatID, formatMessage(ev))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage renders an outcome as a MarkdownV2 message
func formatMessage(ev models.OutcomeEvent) string {
	var b strings.Builder

	switch ev.Outcome {
	case models.OutcomeAlerted:
		b.WriteString("🚨 *All conditions met*\n\n")
	case models.OutcomeFinished:
		b.WriteString("🏁 *Match finished*\n\n")
	default:
		b.WriteString("⏹ *Monitoring stopped*\n\n")
	}

	fmt.Fprintf(&b, "⚽ Fixture: %s\n", escapeMarkdownV2(ev.Fixture.String()))
	if ev.OutcomeTime != nil {
		fmt.Fprintf(&b, "⏱ Minute: %s\n", escapeMarkdownV2(strconv.Itoa(*ev.OutcomeTime)+"'"))
	}
	b.WriteString("\n")

	for i, cs := range ev.Conditions {
		mark := "❌"
		if cs.Met {
			mark = "✅"
		}
		current := "n/a"
		if cs.Current != nil {
			current = strconv.FormatFloat(*cs.Current, 'f', -1, 64)
		}
		fmt.Fprintf(&b, "%d\\. %s %s: *%s* / %s %s\n",
			i+1,
			escapeMarkdownV2(cs.Team),
			escapeMarkdownV2(cs.Statistic),
			escapeMarkdownV2(current),
			escapeMarkdownV2(strconv.Itoa(cs.Target)),
			mark)
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . ! \
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
