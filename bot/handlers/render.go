package handlers

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/dsprep/prepbot/bot/chunk"
	"github.com/dsprep/prepbot/bot/conversation"
	"github.com/dsprep/prepbot/core/logger"
	tghelpers "github.com/dsprep/prepbot/core/telegram/helpers"
	"github.com/dsprep/prepbot/core/telegram/keyboard"
)

const brokenReplyText = "Извините, Телеграм не переварил ответ"

var finishKeyboard = [][]string{{"/finish_dialog"}}

// emitter renders Outbound messages for the current chat. Dialog replies
// are sent synchronously so chunk order survives; menus go through
// EditOrSend to update the keyboard message in place when possible.
func (a *App) emitter(c tele.Context) conversation.EmitFunc {
	return func(out conversation.Outbound) error {
		if out.Menu != nil {
			return a.sendMenu(c, out)
		}

		var markup *tele.ReplyMarkup
		if out.ShowFinish {
			markup = keyboard.ReplyButtons(finishKeyboard...)
		}
		if out.RemoveKeyboard {
			markup = keyboard.RemoveKeyboard()
		}

		if out.Chunked {
			return a.sendChunk(c, out.Text, markup)
		}

		parts := chunk.Chunks(out.Text, a.maxMessageLen())
		if len(parts) == 0 {
			parts = []string{out.Text}
		}
		for i, part := range parts {
			var m *tele.ReplyMarkup
			if i == len(parts)-1 {
				m = markup
			}
			if err := a.sendChunk(c, part, m); err != nil {
				return err
			}
		}
		return nil
	}
}

func (a *App) maxMessageLen() int {
	if a.cfg != nil && a.cfg.Chat.MaxMessageLen > 0 {
		return a.cfg.Chat.MaxMessageLen
	}
	return 4096
}

func (a *App) sendMenu(c tele.Context, out conversation.Outbound) error {
	text := out.Menu.Text
	if out.Text != "" {
		text = out.Text + "\n\n" + out.Menu.Text
	}
	return tghelpers.EditOrSendMD(c, text, menuMarkup(out.Menu))
}

// sendChunk delivers one message with Markdown, degrading to plain text
// when Telegram rejects the markup, and to a short apology when even the
// plain text fails.
func (a *App) sendChunk(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	mdOpts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup}
	err := c.Send(text, mdOpts)
	if err == nil {
		return nil
	}
	logger.Debug(tghelpers.BuildContext(c), "tg", "markdown_send_failed",
		slog.Int("text_len", len(text)),
		slog.String("err", err.Error()))

	plainOpts := &tele.SendOptions{ReplyMarkup: markup}
	if err := c.Send(text, plainOpts); err == nil {
		return nil
	}
	return c.Send(brokenReplyText, plainOpts)
}

func menuMarkup(menu *conversation.Menu) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(menu.Rows))
	for _, row := range menu.Rows {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{Text: b.Label, Unique: b.Tag})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}
