package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smart-reminder/internal/config"
	"smart-reminder/internal/deadline"
	"smart-reminder/internal/model"
	"smart-reminder/internal/occurrence"
	"smart-reminder/internal/planner"
	"smart-reminder/internal/repository"
	"smart-reminder/internal/service"
	"smart-reminder/internal/timeutil"
)

const (
	cbDonePrefix    = "done:"
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
	cbWatchPrefix   = "watch:"
)

const (
	menuLabelToday   = "📅 Today"
	menuLabelPlanner = "🗓 Planner"
	menuLabelMissed  = "⚠️ Missed"
	menuLabelNew     = "➕ New"
	btnCancelDialog  = "⏪ Cancel input"
	maxListButtons   = 20
	keptText         = "↩️ Kept."
)

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	taskSvc       *service.TaskService
	reminderSvc   *service.ReminderService
	countdown     *service.CountdownService
	config        *config.Config
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, taskSvc *service.TaskService, reminderSvc *service.ReminderService, countdown *service.CountdownService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		taskSvc:       taskSvc,
		reminderSvc:   reminderSvc,
		countdown:     countdown,
		config:        cfg,
		conversations: make(map[int64]*conversationState),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("[error] handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("[error] handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && strings.TrimSpace(msg.Text) == btnCancelDialog {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	switch strings.TrimSpace(msg.Text) {
	case menuLabelToday:
		return b.handleView(ctx, msg, planner.ViewToday)
	case menuLabelPlanner:
		return b.handlePlanner(ctx, msg)
	case menuLabelMissed:
		return b.handleMissed(ctx, msg)
	case menuLabelNew:
		return b.startNewRecordConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Use /new to add an item or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "today":
		return b.handleView(ctx, msg, planner.ViewToday)
	case "all":
		return b.handleView(ctx, msg, planner.ViewAll)
	case "upcoming":
		return b.handleView(ctx, msg, planner.ViewUpcoming)
	case "completed":
		return b.handleView(ctx, msg, planner.ViewCompleted)
	case "planner":
		return b.handlePlanner(ctx, msg)
	case "missed":
		return b.handleMissed(ctx, msg)
	case "new":
		return b.startNewRecordConversation(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg.Chat.ID, msg.From, msg.CommandArguments())
	case "delete":
		return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, msg.CommandArguments())
	case "edit":
		return b.handleEdit(ctx, msg)
	case "watch":
		return b.handleWatch(ctx, msg.Chat.ID, msg.From, msg.CommandArguments())
	case "unwatch":
		return b.handleUnwatch(msg)
	case "mute":
		return b.handleMute(ctx, msg, true)
	case "unmute":
		return b.handleMute(ctx, msg, false)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unsupported command. See /help.")
	}
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /today, /all, /upcoming, /completed [task|schedule] — list items\n" +
	"• /planner [YYYY-MM-DD] [YYYY-MM-DD] [task|schedule] — expanded agenda for a day or range\n" +
	"• /missed [all] — tasks past their deadline (today by default)\n" +
	"• /new — add a task or schedule item step by step\n" +
	"• /done &lt;id&gt; — mark done\n" +
	"• /edit &lt;id&gt; field=value … — fields: title, description, location, kind, date, time, status, repeat, days, start, end, offset\n" +
	"• /delete &lt;id&gt; — delete an item with all its occurrences\n" +
	"• /watch &lt;id&gt;, /unwatch &lt;id&gt; — live countdown\n" +
	"• /mute, /unmute — switch reminders off or on\n" +
	"• /report — daily report now\n" +
	"• /cancel — cancel current input"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your tasks and schedule and remind you before deadlines.</b>\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleView(ctx context.Context, msg *tgbotapi.Message, view planner.View) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	args, err := b.listArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	now := time.Now()
	listing, err := b.taskSvc.ListOccurrences(ctx, user.ID, view, args.filter, now, now)
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	return b.sendListing(msg.Chat.ID, fmt.Sprintf("%s · %s", view, args.filter), listing.Entries)
}

func (b *Bot) handlePlanner(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	args, err := b.listArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	now := time.Now()
	start, end := now, now
	switch len(args.dates) {
	case 1:
		start, end = args.dates[0], args.dates[0]
	case 2:
		start, end = args.dates[0], args.dates[1]
	}
	listing, err := b.taskSvc.ListRange(ctx, user.ID, args.filter, start, end, now)
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}

	title := "Planner " + timeutil.FormatDate(start.In(b.config.Location))
	if !timeutil.StartOfDay(start).Equal(timeutil.StartOfDay(end)) {
		title += " → " + timeutil.FormatDate(end.In(b.config.Location))
	}
	if err := b.sendListing(msg.Chat.ID, title+" · Tasks", listing.Tasks); err != nil {
		return err
	}
	return b.sendListing(msg.Chat.ID, title+" · Schedule", listing.Schedules)
}

func (b *Bot) handleMissed(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	args, err := b.listArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	entries, err := b.taskSvc.ListMissed(ctx, user.ID, !args.all, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	scope := "Today"
	if args.all {
		scope = "All"
	}
	return b.sendListing(msg.Chat.ID, "Missed · "+scope, entries)
}

func (b *Bot) listArgs(raw string) (listArgs, error) {
	fields, err := splitArgs(raw)
	if err != nil {
		return listArgs{}, err
	}
	return parseListArgs(fields, b.config.Location)
}

func (b *Bot) sendListing(chatID int64, title string, entries []service.Entry) error {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>%s</b>\n\n", escape(title)))
	if len(entries) == 0 {
		builder.WriteString("— nothing here")
		return b.sendText(chatID, builder.String())
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, e := range entries {
		builder.WriteString(service.FormatEntry(e))
		if e.Classification.State == deadline.Done || e.Occurrence.Record.IsDone() || len(buttons) >= maxListButtons {
			continue
		}
		id := e.Occurrence.ID
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %s", shortTitle(e.Occurrence.Record.Title, 20)), cbDonePrefix+id),
		}
		if e.Classification.IsPending() {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("⏱", cbWatchPrefix+id))
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+id))
		buttons = append(buttons, row)
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, from *tgbotapi.User, occID string) error {
	occID = strings.TrimSpace(occID)
	if occID == "" {
		return b.sendText(chatID, "Give the item id: /done 12-2024-03-10")
	}
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.MarkDone(ctx, user.ID, occID)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}
	return b.sendText(chatID, fmt.Sprintf("✅ «%s» is done.", escape(task.Title)))
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, occID string) error {
	occID = strings.TrimSpace(occID)
	if occID == "" {
		return b.sendText(chatID, "Give the item id: /delete 12")
	}
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	occ, err := b.taskSvc.Occurrence(ctx, user.ID, occID)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}
	text := fmt.Sprintf("🗑 Delete «%s»?", escape(occ.Record.Title))
	if occ.Record.RepeatFrequency != model.RepeatNone {
		text += "\nThis removes every occurrence of the repeating item."
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Delete", cbConfirmPrefix+occID),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", cbCancelPrefix+occID),
	))
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) deleteRecord(ctx context.Context, chatID int64, from *tgbotapi.User, occID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	if err := b.taskSvc.DeleteRecord(ctx, user.ID, occID); err != nil {
		return b.sendText(chatID, describeError(err))
	}
	return b.sendText(chatID, "🗑 Deleted.")
}

// keepRecord closes a delete confirmation without deleting anything.
func (b *Bot) keepRecord(chatID int64, messageID int) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, keptText)
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("[warn] close delete confirmation: %v", err)
		return b.sendText(chatID, keptText)
	}
	return nil
}

func (b *Bot) handleEdit(ctx context.Context, msg *tgbotapi.Message) error {
	fields, err := splitArgs(msg.CommandArguments())
	if err != nil || len(fields) < 2 {
		return b.sendText(msg.Chat.ID, "Usage: /edit &lt;id&gt; field=value …, e.g. /edit 12 time=\"3:00 PM\" offset=10")
	}
	patch, err := parsePatch(fields[1:], b.config.Location)
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.EditRecord(ctx, user.ID, fields[0], patch)
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	text := fmt.Sprintf("✏️ «%s» updated: %s %s.", escape(task.Title), task.AnchorDate, task.Time)
	if task.NotificationHandle != nil {
		text += fmt.Sprintf("\n🔔 Reminder %d min before.", task.ReminderOffsetMinutes)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleWatch(ctx context.Context, chatID int64, from *tgbotapi.User, occID string) error {
	occID = strings.TrimSpace(occID)
	if occID == "" {
		return b.sendText(chatID, "Give the item id: /watch 12-2024-03-10")
	}
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	occ, err := b.taskSvc.Occurrence(ctx, user.ID, occID)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}

	status := occ.Record.Status
	first := deadline.Classify(occ, time.Now(), status)
	out := tgbotapi.NewMessage(chatID, countdownText(occ, first))
	out.ParseMode = tgbotapi.ModeHTML
	sent, err := b.api.Send(out)
	if err != nil || !first.IsPending() {
		return err
	}

	var (
		mu   sync.Mutex
		last = first.Label
	)
	_, _, err = b.countdown.Watch(occ, status, func(c deadline.Classification) {
		mu.Lock()
		defer mu.Unlock()
		if c.Label == last {
			return
		}
		last = c.Label
		edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, countdownText(occ, c))
		edit.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(edit); err != nil {
			log.Printf("[warn] countdown edit occ=%s: %v", occ.ID, err)
		}
	})
	return err
}

func (b *Bot) handleUnwatch(msg *tgbotapi.Message) error {
	if b.countdown.Release(strings.TrimSpace(msg.CommandArguments())) {
		return b.sendText(msg.Chat.ID, "⏹ Countdown stopped.")
	}
	return b.sendText(msg.Chat.ID, "No countdown is running for that id.")
}

func countdownText(occ occurrence.Occurrence, c deadline.Classification) string {
	return fmt.Sprintf("⏱ <b>%s</b>\n%s %s\n<b>%s</b>",
		escape(occ.Record.Title), occ.DateString(), timeutil.FormatDisplayTime(occ.Deadline), escape(c.Label))
}

func (b *Bot) handleMute(ctx context.Context, msg *tgbotapi.Message, muted bool) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.userRepo.SetMuted(ctx, user.ID, muted); err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	if muted {
		return b.sendText(msg.Chat.ID, "🔕 Reminders are off. /unmute to switch them back on.")
	}
	return b.sendText(msg.Chat.ID, "🔔 Reminders are on.")
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminderSvc.DailySummary(ctx, *user, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[warn] callback ack: %v", err)
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Printf("[info] callback user=%d data=%s", cb.From.ID, data)

	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		return b.handleDone(ctx, chatID, cb.From, strings.TrimPrefix(data, cbDonePrefix))
	case strings.HasPrefix(data, cbDeletePrefix):
		return b.askDeleteConfirmation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbDeletePrefix))
	case strings.HasPrefix(data, cbConfirmPrefix):
		return b.deleteRecord(ctx, chatID, cb.From, strings.TrimPrefix(data, cbConfirmPrefix))
	case strings.HasPrefix(data, cbWatchPrefix):
		return b.handleWatch(ctx, chatID, cb.From, strings.TrimPrefix(data, cbWatchPrefix))
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.keepRecord(chatID, cb.Message.MessageID)
	default:
		return nil
	}
}

// SendDailyReports pushes the daily summary to every user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.reminderSvc.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("[error] build summary for user %d: %v", user.TelegramID, err)
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			log.Printf("[error] send summary to %d: %v", user.TelegramID, err)
		}
	}
	return nil
}

// Deliver sends a fired reminder unless the user muted reminders.
func (b *Bot) Deliver(ctx context.Context, userID uint, title, body string) error {
	user, err := b.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.RemindersMuted {
		log.Printf("[info] reminder skipped, user=%d muted", userID)
		return nil
	}
	return b.sendText(user.TelegramID, fmt.Sprintf("🔔 <b>%s</b>\n%s", escape(title), escape(body)))
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// describeError keeps storage failures apart from rejected input.
func describeError(err error) string {
	var se *repository.StorageError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "Item not found."
	case errors.As(err, &se):
		return fmt.Sprintf("⚠️ Could not save, nothing was changed (%s).", escape(se.Error()))
	case errors.Is(err, timeutil.ErrFormat), errors.Is(err, occurrence.ErrInvalidID):
		return fmt.Sprintf("❌ Invalid input: %s", escape(err.Error()))
	default:
		return fmt.Sprintf("❌ %s", escape(err.Error()))
	}
}

func shortTitle(title string, maxLen int) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelPlanner),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelMissed),
			tgbotapi.NewKeyboardButton(menuLabelNew),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
