package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/dsprep/prepbot/bot/conversation"
	"github.com/dsprep/prepbot/core/logger"
	"github.com/dsprep/prepbot/core/telegram/format"
	tghelpers "github.com/dsprep/prepbot/core/telegram/helpers"
)

// maxDownloadBytes bounds voice, photo, and document downloads.
const maxDownloadBytes = 20 << 20

var commandEvents = map[string]conversation.Command{
	"/start":         conversation.CommandStart,
	"/cancel":        conversation.CommandCancel,
	"/finish_dialog": conversation.CommandFinish,
}

func (a *App) normalizeEvent(c tele.Context) (conversation.Event, error) {
	msg := c.Message()
	if msg == nil {
		return conversation.Event{}, fmt.Errorf("handlers: update without message")
	}

	switch {
	case msg.Voice != nil:
		return a.voiceEvent(c, msg.Voice)
	case msg.Photo != nil:
		data, err := a.download(c, &msg.Photo.File)
		if err != nil {
			return conversation.Event{}, err
		}
		return conversation.Event{Kind: conversation.EventImage, Image: data}, nil
	case msg.Document != nil:
		data, err := a.download(c, &msg.Document.File)
		if err != nil {
			return conversation.Event{}, err
		}
		return conversation.Event{
			Kind: conversation.EventDocument,
			Data: data,
			Name: msg.Document.FileName,
		}, nil
	}

	text := strings.TrimSpace(c.Text())
	if cmd, ok := commandEvents[text]; ok {
		return conversation.Event{Kind: conversation.EventCommand, Command: cmd}, nil
	}
	return conversation.Event{Kind: conversation.EventText, Text: text}, nil
}

func (a *App) voiceEvent(c tele.Context, voice *tele.Voice) (conversation.Event, error) {
	ctx := tghelpers.BuildContext(c)
	data, err := a.download(c, &voice.File)
	if err != nil {
		return conversation.Event{}, err
	}
	text, err := a.transcriber.Transcribe(ctx, data)
	if err != nil {
		_ = tghelpers.SendText(c, "Не удалось распознать голосовое сообщение.")
		return conversation.Event{}, fmt.Errorf("handlers: transcription: %w", err)
	}

	// Echo the recognized text so the user can see what was understood.
	if escaped, eerr := format.EscapeMarkdown(text, format.MarkdownV1); eerr == nil {
		_ = tghelpers.SendMD(c, "🎙 _"+escaped+"_")
	}
	return conversation.Event{Kind: conversation.EventText, Text: text}, nil
}

func (a *App) download(c tele.Context, file *tele.File) ([]byte, error) {
	rc, err := c.Bot().File(file)
	if err != nil {
		return nil, fmt.Errorf("handlers: file download: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("handlers: file read: %w", err)
	}
	return data, nil
}

func (a *App) dispatch(c tele.Context, ev conversation.Event) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	sess := a.loadSession(c, userID)

	next, err := a.engine.HandleEvent(ctx, sess, ev, a.emitter(c))
	a.sessions.Put(userID, next)

	if next.Settings != sess.Settings && a.settings != nil {
		if serr := a.settings.Save(ctx, userID, next.Settings); serr != nil {
			logger.Warn(ctx, "db", "settings_save_failed",
				slog.Int64("user_id", userID),
				slog.String("err", serr.Error()))
		}
	}

	if err != nil {
		return a.renderError(c, err)
	}
	return nil
}

// loadSession returns the in-memory session, seeding persisted settings on
// first contact.
func (a *App) loadSession(c tele.Context, userID int64) conversation.Session {
	if a.sessions.Known(userID) {
		return a.sessions.Get(userID)
	}
	sess := conversation.NewSession()
	if a.settings != nil {
		ctx := tghelpers.BuildContext(c)
		if stored, ok, err := a.settings.Load(ctx, userID); err != nil {
			logger.Warn(ctx, "db", "settings_load_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()))
		} else if ok {
			sess.Settings = stored
		}
	}
	return sess
}

func (a *App) renderError(c tele.Context, err error) error {
	var convErr *conversation.Error
	if !errors.As(err, &convErr) {
		return err
	}
	switch {
	case convErr.UserText != "":
		if serr := tghelpers.SendText(c, convErr.UserText); serr != nil {
			return serr
		}
	case convErr.Kind == conversation.KindProviderFailure:
		if serr := tghelpers.SendText(c, "Извините, не удалось получить ответ. Попробуйте еще раз."); serr != nil {
			return serr
		}
	case convErr.Kind == conversation.KindUnsupportedChoice || convErr.Kind == conversation.KindInvalidInput:
		if serr := tghelpers.SendText(c, "Не удалось обработать запрос."); serr != nil {
			return serr
		}
	}
	return err
}
