package router

import (
	"time"

	tg "github.com/dsprep/prepbot/core/telegram"
	"github.com/dsprep/prepbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for a conversation state manager.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and attachment updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	UnknownVoice    tele.HandlerFunc
	UnknownPhoto    tele.HandlerFunc
}

// TextRoutes builds handlers that route plain text either into the active
// conversation, a looked-up command, or the registered fallback.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	attachment := func(name string, unknown tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			if fsmMgr != nil && fsmMgr.InProgress(c.Sender().ID) {
				return handleWithSummary(c, "fsm_"+name, start, "", "", func() error {
					return fsmMgr.ManagerHandler(c)
				})
			}
			if unknown != nil {
				return handleWithSummary(c, "unexpected_"+name, start, "", "", func() error {
					return unknown(c)
				})
			}
			logHandlerSummary(c, "unexpected_"+name, start, "skip", "ok", nil)
			return nil
		}
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(handler)},
		{Endpoint: tele.OnDocument, Handler: wrap(attachment("document", opts.UnknownDocument))},
		{Endpoint: tele.OnVoice, Handler: wrap(attachment("voice", opts.UnknownVoice))},
		{Endpoint: tele.OnPhoto, Handler: wrap(attachment("photo", opts.UnknownPhoto))},
	}
}
