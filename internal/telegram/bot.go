package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mrtesla07/3xui-shop/internal/domain"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

// Plan тарифный план подписки
type Plan struct {
	Devices  int
	Duration int // days
	Price    float64
}

// DefaultPlans тарифы, предлагаемые ботом
var DefaultPlans = []Plan{
	{Devices: 1, Duration: 30, Price: 199},
	{Devices: 3, Duration: 30, Price: 299},
	{Devices: 1, Duration: 180, Price: 999},
	{Devices: 3, Duration: 180, Price: 1499},
}

// PaymentCreator создает платеж и возвращает ссылку на оплату.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, data domain.SubscriptionData) (string, error)
}

// Bot обертка над Telegram Bot API: точка входа для покупки подписки
// и канал уведомлений о результате платежа.
type Bot struct {
	api   *tgbotapi.BotAPI
	plans []Plan
	log   *logger.Logger
}

// NewBot создает нового бота
func NewBot(token string, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Infow("Telegram bot authorized", "username", api.Self.UserName)
	return &Bot{
		api:   api,
		plans: DefaultPlans,
		log:   log,
	}, nil
}

// RedirectURL возвращает адрес бота, на который провайдер вернет
// пользователя после оплаты.
func (b *Bot) RedirectURL(ctx context.Context) (string, error) {
	return "https://t.me/" + b.api.Self.UserName, nil
}

// NotifyPaymentSucceeded уведомляет пользователя об успешной оплате.
func (b *Bot) NotifyPaymentSucceeded(ctx context.Context, tgID int64, subscription string) {
	msg := tgbotapi.NewMessage(tgID, "Оплата прошла успешно! Подписка активирована.")
	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorw("Failed to notify user about successful payment", "error", err, "tgID", tgID)
	}
}

// NotifyPaymentCanceled уведомляет пользователя об отмене платежа.
func (b *Bot) NotifyPaymentCanceled(ctx context.Context, tgID int64) {
	msg := tgbotapi.NewMessage(tgID, "Платеж отменен. Попробуйте еще раз: /plans")
	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorw("Failed to notify user about canceled payment", "error", err, "tgID", tgID)
	}
}

// Run запускает цикл обработки обновлений. Блокирует до отмены контекста.
func (b *Bot) Run(ctx context.Context, gateway PaymentCreator) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, gateway, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, gateway PaymentCreator, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, gateway, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	}
}

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start", "plans":
		b.sendPlans(message.Chat.ID)
	default:
		msg := tgbotapi.NewMessage(message.Chat.ID, "Доступные команды: /plans")
		if _, err := b.api.Send(msg); err != nil {
			b.log.Errorw("Failed to send reply", "error", err, "tgID", message.Chat.ID)
		}
	}
}

func (b *Bot) sendPlans(chatID int64) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(b.plans))
	for i, plan := range b.plans {
		label := fmt.Sprintf("%s / %s — %.0f ₽",
			FormatDeviceCount(plan.Devices), FormatSubscriptionPeriod(plan.Duration), plan.Price)
		button := tgbotapi.NewInlineKeyboardButtonData(label, "buy:"+strconv.Itoa(i))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button))
	}

	msg := tgbotapi.NewMessage(chatID, "Выберите тариф:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorw("Failed to send plans", "error", err, "tgID", chatID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, gateway PaymentCreator, query *tgbotapi.CallbackQuery) {
	// Снимаем "часики" с кнопки независимо от результата.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warnw("Failed to answer callback query", "error", err)
	}

	data := query.Data
	if !strings.HasPrefix(data, "buy:") {
		return
	}

	index, err := strconv.Atoi(strings.TrimPrefix(data, "buy:"))
	if err != nil || index < 0 || index >= len(b.plans) {
		b.log.Warnw("Invalid plan selection", "data", data, "tgID", query.From.ID)
		return
	}

	plan := b.plans[index]
	paymentURL, err := gateway.CreatePayment(ctx, domain.SubscriptionData{
		UserID:   query.From.ID,
		Devices:  plan.Devices,
		Duration: plan.Duration,
		Price:    plan.Price,
	})
	if err != nil {
		b.log.Errorw("Failed to create payment", "error", err, "tgID", query.From.ID)
		msg := tgbotapi.NewMessage(query.From.ID, "Не удалось создать платеж. Попробуйте позже.")
		if _, sendErr := b.api.Send(msg); sendErr != nil {
			b.log.Errorw("Failed to send reply", "error", sendErr, "tgID", query.From.ID)
		}
		return
	}

	msg := tgbotapi.NewMessage(query.From.ID, "Ссылка на оплату: "+paymentURL)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorw("Failed to send payment link", "error", err, "tgID", query.From.ID)
	}
}
