package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/conversation"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/db"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/generator"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/models"
	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/payment"
	"github.com/hoomanthewonderman-hub/Fitness-bot/pkg/logger"
)

// DefaultGymID is the single tenant created at bootstrap.
const DefaultGymID = "default_gym"

const callbackStartProfile = "start_profile"

const (
	msgAdminOnly       = "فقط ادمین می‌تواند این دستور را اجرا کند."
	msgNoPending       = "پرداخت معوقی وجود ندارد."
	msgPaymentNotFound = "پرداختی با این مشخصات پیدا نشد یا قبلاً تایید شده."
	msgGymNotFound     = "باشگاه پیدا نشد، با ادمین تماس بگیرید."
	msgUnknownCommand  = "متوجه نشدم، لطفاً دوباره تلاش کن یا /start را بزنید."
	msgNeedProfile     = "ابتدا باید پروفایل بسازید. /start را بزنید."
	msgNotPaidYet      = "برنامه پس از تایید پرداخت ارسال می‌شود. برای پرداخت /pay را بزنید."
	msgGenericError    = "خطایی رخ داد، لطفاً کمی بعد دوباره تلاش کنید."
)

type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	db       *db.PostgresDB
	machine  *conversation.Machine
	payments *payment.Service
	programs *generator.Generator
	logger   *logger.Logger
	gymID    string
}

func NewTelegramBot(token string, database *db.PostgresDB, machine *conversation.Machine, programs *generator.Generator, l *logger.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	l.Info("Authorized on Telegram", "username", api.Self.UserName)

	return &TelegramBot{
		bot:      api,
		db:       database,
		machine:  machine,
		programs: programs,
		logger:   l,
		gymID:    DefaultGymID,
	}, nil
}

// SetPaymentService wires the payment workflow after construction; the
// service needs the bot as its notifier, so the two are tied together in main.
func (t *TelegramBot) SetPaymentService(s *payment.Service) {
	t.payments = s
}

// Notify implements payment.Notifier. For private chats the chat id equals
// the user id.
func (t *TelegramBot) Notify(chatID int64, text string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Start begins receiving updates from Telegram via polling.
func (t *TelegramBot) Start(ctx context.Context) error {
	_, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := t.bot.GetUpdatesChan(updateConfig)
	t.logger.Info("Started receiving Telegram updates")

	go t.handleUpdates(ctx, updates)

	return nil
}

// Stop gracefully shuts down the bot.
func (t *TelegramBot) Stop(ctx context.Context) error {
	t.bot.StopReceivingUpdates()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

func (t *TelegramBot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		go func(update tgbotapi.Update) {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("Recovered from panic while processing update", "error", r)
				}
			}()

			switch {
			case update.Message != nil && update.Message.IsCommand():
				t.handleCommand(ctx, update.Message)
			case update.Message != nil:
				t.handleMessage(ctx, update.Message)
			case update.CallbackQuery != nil:
				t.handleCallbackQuery(ctx, update.CallbackQuery)
			}
		}(update)
	}
}

func (t *TelegramBot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	chatID := message.Chat.ID
	userID := message.From.ID

	t.logger.Info("Handling command", "command", command, "user_id", userID)

	switch command {
	case "start":
		t.cmdStart(ctx, message)
	case "pay":
		t.cmdPay(ctx, chatID, userID)
	case "confirm":
		t.cmdConfirm(ctx, chatID, userID, message.CommandArguments())
	case "program":
		t.cmdProgram(ctx, chatID, userID)
	case "admin", "pending":
		t.cmdPending(ctx, chatID, userID)
	case "approve":
		t.cmdApprove(ctx, chatID, userID, message.CommandArguments())
	case "help":
		t.reply(chatID, "من ربات برنامه‌ساز باشگاه هستم. با /start شروع کنید، با /pay پرداخت بسازید و با /program برنامه را بگیرید.")
	default:
		t.reply(chatID, msgUnknownCommand)
	}
}

// cmdStart clears any in-progress session and offers the single intake
// button. The questions only begin once the button is pressed.
func (t *TelegramBot) cmdStart(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	t.machine.Reset(userID)

	greeting := fmt.Sprintf("سلام %s!\nمن ربات برنامه‌ساز باشگاه هستم. برای شروع دکمه را بزن.", message.From.FirstName)
	if gym, err := t.db.GetGym(ctx, t.gymID); err == nil && gym != nil && gym.WelcomeMessage != "" {
		greeting = gym.WelcomeMessage + "\n\n" + greeting
	}

	msg := tgbotapi.NewMessage(chatID, greeting)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("شروع ساخت پروفایل و برنامه", callbackStartProfile),
		),
	)
	t.send(msg)
}

func (t *TelegramBot) cmdPay(ctx context.Context, chatID, userID int64) {
	p, gym, err := t.payments.CreatePending(ctx, userID, t.gymID)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			t.reply(chatID, msgGymNotFound)
			return
		}
		t.logger.Error("Failed to create pending payment", "error", err, "user_id", userID)
		t.reply(chatID, msgGenericError)
		return
	}

	text := fmt.Sprintf(
		"پرداخت ایجاد شد (id=%d). برای پرداخت کارت به کارت شماره کارت زیر:\n\n"+
			"شماره کارت: %s\nبه نام: %s\n\nیا انتقال TON به:\n%s\n\n"+
			"بعد از انتقال، عکس رسید یا شناسه تراکنش را برای این ربات ارسال کنید یا /confirm %d را بزنید تا برای ادمین جهت تایید ارسال شود.",
		p.ID, gym.BankCard, gym.CardOwner, gym.TonWallet, p.ID,
	)
	t.reply(chatID, text)
}

func (t *TelegramBot) cmdConfirm(ctx context.Context, chatID, userID int64, args string) {
	paymentID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		t.reply(chatID, "استفاده: /confirm <payment_id>")
		return
	}

	if err := t.payments.Confirm(ctx, userID, paymentID); err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			t.reply(chatID, msgPaymentNotFound)
			return
		}
		t.logger.Error("Failed to confirm payment", "error", err, "payment_id", paymentID)
		t.reply(chatID, msgGenericError)
		return
	}

	t.reply(chatID, fmt.Sprintf("درخواست تایید پرداخت %d برای ادمین ارسال شد.", paymentID))
}

// programGate decides whether a user may receive the artifact. It returns
// the rejection reply, or "" once the profile exists and payment is approved.
func programGate(user *models.User) string {
	if user == nil {
		return msgNeedProfile
	}
	if user.PaymentStatus != models.UserPaymentPaid {
		return msgNotPaidYet
	}
	return ""
}

// cmdProgram delivers the artifact once the user's payment is approved.
// Generation is cache-first, so repeated calls are cheap.
func (t *TelegramBot) cmdProgram(ctx context.Context, chatID, userID int64) {
	user, err := t.db.GetUser(ctx, userID, t.gymID)
	if err != nil {
		t.logger.Error("Failed to load user", "error", err, "user_id", userID)
		t.reply(chatID, msgGenericError)
		return
	}
	if rejection := programGate(user); rejection != "" {
		t.reply(chatID, rejection)
		return
	}

	genCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	profile := &models.Profile{
		Username:            user.Username,
		FullName:            user.FullName,
		Age:                 user.Age,
		Height:              user.Height,
		Weight:              user.Weight,
		Gender:              user.Gender,
		Goal:                user.Goal,
		DietaryRestrictions: user.DietaryRestrictions,
		PreferredFoods:      user.PreferredFoods,
	}

	text, err := t.programs.Generate(genCtx, profile, t.gymID, generator.TypeFullProgram)
	if err != nil {
		t.logger.Error("Failed to generate program", "error", err, "user_id", userID)
		t.reply(chatID, msgGenericError)
		return
	}

	t.reply(chatID, "🎉 برنامه شما آماده است!\n\n"+text)
}

func (t *TelegramBot) cmdPending(ctx context.Context, chatID, userID int64) {
	payments, err := t.payments.ListPending(ctx, userID, t.gymID)
	if err != nil {
		if errors.Is(err, payment.ErrUnauthorized) {
			t.reply(chatID, msgAdminOnly)
			return
		}
		t.logger.Error("Failed to list pending payments", "error", err)
		t.reply(chatID, msgGenericError)
		return
	}

	if len(payments) == 0 {
		t.reply(chatID, msgNoPending)
		return
	}

	var b strings.Builder
	b.WriteString("پرداخت‌های معلق:\n")
	for _, p := range payments {
		fmt.Fprintf(&b, "id: %d | user: %d | %d تومان | %.2f TON | %s\n",
			p.ID, p.UserID, p.AmountToman, p.AmountTon, p.CreatedAt.Format(time.RFC3339))
	}
	t.reply(chatID, b.String())
}

func (t *TelegramBot) cmdApprove(ctx context.Context, chatID, userID int64, args string) {
	paymentID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		t.reply(chatID, "استفاده: /approve <payment_id>")
		return
	}

	if err := t.payments.Approve(ctx, userID, paymentID); err != nil {
		switch {
		case errors.Is(err, payment.ErrUnauthorized):
			t.reply(chatID, msgAdminOnly)
		case errors.Is(err, payment.ErrNotFound):
			t.reply(chatID, msgPaymentNotFound)
		default:
			t.logger.Error("Failed to approve payment", "error", err, "payment_id", paymentID)
			t.reply(chatID, msgGenericError)
		}
		return
	}

	t.reply(chatID, fmt.Sprintf("پرداخت %d تایید شد و وضعیت کاربر به 'paid' تغییر کرد.", paymentID))
}

func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	identity := conversation.Identity{
		Username: message.From.UserName,
		FullName: strings.TrimSpace(message.From.FirstName + " " + message.From.LastName),
	}

	reply := t.machine.HandleMessage(ctx, message.From.ID, identity, message.Text)
	t.reply(message.Chat.ID, reply)
}

func (t *TelegramBot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	t.bot.Request(tgbotapi.NewCallback(query.ID, ""))

	if query.Data != callbackStartProfile || query.Message == nil {
		return
	}

	prompt := t.machine.Begin(query.From.ID, t.gymID)
	t.reply(query.Message.Chat.ID, prompt)
}

func (t *TelegramBot) reply(chatID int64, text string) {
	t.send(tgbotapi.NewMessage(chatID, text))
}

func (t *TelegramBot) send(msg tgbotapi.MessageConfig) {
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("Failed to send message", "error", err, "chat_id", msg.ChatID)
	}
}
