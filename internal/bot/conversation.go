package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smart-reminder/internal/model"
	"smart-reminder/internal/service"
	"smart-reminder/internal/timeutil"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageKind
	stageTitle
	stageDate
	stageTime
	stageRepeat
	stageDays
)

type conversationState struct {
	stage conversationStage
	input service.RecordInput
}

func (b *Bot) startNewRecordConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	log.Printf("[info] start new record conversation user=%d", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageKind})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New item.\n<b>Step 1:</b> what kind is it?", kindKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageKind:
		kind, err := parseKind(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the kinds below.", kindKeyboard())
		}
		state.input.Kind = kind
		state.stage = stageTitle
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ What is it called?", cancelKeyboard())
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title cannot be empty.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "📆 Which day? <code>2024-03-10</code>, <code>today</code> or <code>tomorrow</code>.", dateKeyboard())
	case stageDate:
		date, err := b.resolveDate(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I cannot read that date. Use <code>2024-03-10</code>.", dateKeyboard())
		}
		state.input.Date = date
		state.stage = stageTime
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ At what time? <code>2:30 PM</code> or <code>14:30</code>.", cancelKeyboard())
	case stageTime:
		clock, err := normalizeTime(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I cannot read that time. Use <code>2:30 PM</code> or <code>14:30</code>.", cancelKeyboard())
		}
		state.input.Time = clock
		state.stage = stageRepeat
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Does it repeat?", repeatKeyboard())
	case stageRepeat:
		repeat, err := parseRepeat(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Choose none, daily or weekly.", repeatKeyboard())
		}
		state.input.Repeat = repeat
		if repeat == model.RepeatWeekly {
			state.stage = stageDays
			return b.sendWithReplyMarkup(msg.Chat.ID, "📅 On which days? e.g. <code>Mon,Wed,Fri</code>", cancelKeyboard())
		}
		return b.finishRecordCreation(ctx, msg, state.input)
	case stageDays:
		days, err := parseDays(text)
		if err != nil || len(days) == 0 {
			return b.sendWithReplyMarkup(msg.Chat.ID, "List weekdays like <code>Mon,Wed</code>.", cancelKeyboard())
		}
		state.input.RepeatDays = days
		return b.finishRecordCreation(ctx, msg, state.input)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Start again with /new.")
	}
}

func (b *Bot) finishRecordCreation(ctx context.Context, msg *tgbotapi.Message, input service.RecordInput) error {
	b.clearConversation(msg.From.ID)
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.CreateRecord(ctx, user.ID, input)
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("✅ Saved <b>%s</b> <i>(%s)</i>\n🆔 <code>%d</code> · %s %s",
		escape(task.Title), task.Kind, task.ID, task.AnchorDate, task.Time))
	if task.RepeatFrequency != model.RepeatNone {
		builder.WriteString(fmt.Sprintf("\n🔁 %s", task.RepeatFrequency))
		if len(task.RepeatDays) > 0 {
			builder.WriteString(" on " + strings.Join(task.RepeatDays.Tokens(), ", "))
		}
	}
	switch {
	case task.NotificationHandle != nil:
		builder.WriteString(fmt.Sprintf("\n🔔 Reminder %d min before.", task.ReminderOffsetMinutes))
	case task.Kind == model.KindTask:
		builder.WriteString("\n🔕 No reminder scheduled.")
	}
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) resolveDate(text string) (string, error) {
	now := time.Now().In(b.config.Location)
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "today":
		return timeutil.FormatDate(now), nil
	case "tomorrow":
		return timeutil.FormatDate(now.AddDate(0, 0, 1)), nil
	}
	return normalizeDate(text, b.config.Location)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.conversations[userID]
	return ok && state != nil && state.stage != stageNone
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func kindKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var first, second []tgbotapi.KeyboardButton
	for i, k := range model.Kinds {
		if i < 3 {
			first = append(first, tgbotapi.NewKeyboardButton(string(k)))
		} else {
			second = append(second, tgbotapi.NewKeyboardButton(string(k)))
		}
	}
	kb := tgbotapi.NewReplyKeyboard(first, append(second, tgbotapi.NewKeyboardButton(btnCancelDialog)))
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func dateKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("today"),
			tgbotapi.NewKeyboardButton("tomorrow"),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func repeatKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(string(model.RepeatNone)),
			tgbotapi.NewKeyboardButton(string(model.RepeatDaily)),
			tgbotapi.NewKeyboardButton(string(model.RepeatWeekly)),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	return kb
}
