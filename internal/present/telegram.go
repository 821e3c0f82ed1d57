package present

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/model"
)

const ackPrefix = "ack:"

// botAPI is the subset of *tgbotapi.BotAPI the presenter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramPresenter sends notifications to one Telegram chat. Each message
// carries a "Got it" button whose callback counts as a tap.
type TelegramPresenter struct {
	bot    botAPI
	chatID int64
	log    *zap.Logger

	mu    sync.Mutex
	onTap func(id string)
}

// NewTelegramBot logs in with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	return bot, nil
}

func NewTelegramPresenter(bot botAPI, chatID int64, log *zap.Logger) *TelegramPresenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &TelegramPresenter{bot: bot, chatID: chatID, log: log}
}

func (p *TelegramPresenter) Present(_ context.Context, req model.NotificationRequest) error {
	text := req.Title
	if req.Body != "" {
		text += "\n\n" + req.Body
	}

	var c tgbotapi.Chattable
	if req.ImageURL != "" {
		photo := tgbotapi.NewPhoto(p.chatID, tgbotapi.FileURL(req.ImageURL))
		photo.Caption = text
		photo.ReplyMarkup = keyboard(req)
		c = photo
	} else {
		msg := tgbotapi.NewMessage(p.chatID, text)
		msg.ReplyMarkup = keyboard(req)
		c = msg
	}
	if _, err := p.bot.Send(c); err != nil {
		return err
	}
	return nil
}

func keyboard(req model.NotificationRequest) tgbotapi.InlineKeyboardMarkup {
	row := tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Got it", ackPrefix+req.ID))
	if req.ActionURL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("Open", req.ActionURL))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// Permission is granted once a chat is configured.
func (p *TelegramPresenter) Permission(context.Context) (model.Permission, error) {
	if p.chatID == 0 {
		return model.PermissionDenied, nil
	}
	return model.PermissionGranted, nil
}

func (p *TelegramPresenter) OnTap(fn func(id string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTap = fn
}

// HandleUpdate routes "Got it" callbacks to the tap handler.
func (p *TelegramPresenter) HandleUpdate(upd tgbotapi.Update) {
	cq := upd.CallbackQuery
	if cq == nil || !strings.HasPrefix(cq.Data, ackPrefix) {
		return
	}
	if _, err := p.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		p.log.Warn("answer callback failed", zap.Error(err))
	}
	p.mu.Lock()
	fn := p.onTap
	p.mu.Unlock()
	if fn != nil {
		fn(strings.TrimPrefix(cq.Data, ackPrefix))
	}
}

// Run consumes updates until ctx is done or the channel closes.
func (p *TelegramPresenter) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			p.HandleUpdate(upd)
		}
	}
}
