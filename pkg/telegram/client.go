package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is the operator channel: one admin chat that can trigger passes
// and receives alerts when unattended passes fail.
type Client struct {
	Bot          *tgbotapi.BotAPI
	UpdateConfig tgbotapi.UpdateConfig
	AdminChatID  int64
}

func NewClient(token string, adminChatID int64, debug bool) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	bot.Debug = debug

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updateConfig.AllowedUpdates = []string{"message"}

	return &Client{
		Bot:          bot,
		UpdateConfig: updateConfig,
		AdminChatID:  adminChatID,
	}, nil
}

// SendText sends text to chatID without a parse mode.
func (c *Client) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := c.Bot.Send(msg)
	return err
}

// NotifyAdmin sends text to the configured admin chat, if any.
func (c *Client) NotifyAdmin(text string) error {
	if c.AdminChatID == 0 {
		return nil
	}
	return c.SendText(c.AdminChatID, text)
}
