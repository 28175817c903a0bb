// Package handlers binds the conversation engine to the Telegram transport.
package handlers

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/dsprep/prepbot/bot/conversation"
	"github.com/dsprep/prepbot/bot/storage"
	"github.com/dsprep/prepbot/core/config"
	coretelegram "github.com/dsprep/prepbot/core/telegram"
	"github.com/dsprep/prepbot/core/telegram/commands"
	tghelpers "github.com/dsprep/prepbot/core/telegram/helpers"
	"github.com/dsprep/prepbot/core/telegram/router"
)

// VoiceTranscriber converts a voice note to text.
type VoiceTranscriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// App wires sessions, the engine, and the provider into Telegram handlers.
type App struct {
	cfg         *config.Config
	engine      *conversation.Engine
	transcriber VoiceTranscriber
	sessions    *conversation.MemoryStore
	settings    *storage.SettingsStore
}

func NewApp(cfg *config.Config, engine *conversation.Engine, transcriber VoiceTranscriber,
	sessions *conversation.MemoryStore, settings *storage.SettingsStore) *App {
	return &App{
		cfg:         cfg,
		engine:      engine,
		transcriber: transcriber,
		sessions:    sessions,
		settings:    settings,
	}
}

// InProgress reports whether the user has an active flow beyond the root
// menu. Satisfies the message router's FSM interface.
func (a *App) InProgress(userID int64) bool {
	if !a.sessions.Known(userID) {
		return false
	}
	return a.sessions.Get(userID).State != conversation.StateRoot
}

// ManagerHandler receives updates routed into the active conversation.
func (a *App) ManagerHandler(c tele.Context) error {
	ev, err := a.normalizeEvent(c)
	if err != nil {
		return err
	}
	return a.dispatch(c, ev)
}

// TelegramRunOptions assembles the registry, middlewares, and routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	if err := a.registerCallbacks(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a, reg, router.TextOptions{
		UnknownText:     a.hintHandler("Выберите действие из меню: /start"),
		UnknownDocument: a.hintHandler("Сначала выберите задачу в меню: /start"),
		UnknownVoice:    a.hintHandler("Сначала выберите задачу в меню: /start"),
		UnknownPhoto:    a.hintHandler("Сначала выберите задачу в меню: /start"),
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
	}, nil
}

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.commandHandler(conversation.CommandStart),
		Description: "Начать работу с ботом",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.commandHandler(conversation.CommandCancel),
		Description: "Завершить беседу",
	})
	reg.RegisterCommand("/finish_dialog", commands.Command{
		Handler:     a.commandHandler(conversation.CommandFinish),
		Description: "Завершить диалог",
		Aliases:     []string{"finish"},
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.statsHandler,
		Description: "Статистика сессий",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func (a *App) registerCallbacks(reg *coretelegram.Registry) error {
	tags := []string{
		conversation.TagKnowledge, conversation.TagProblem,
		conversation.TagMeme, conversation.TagSettings, conversation.TagBack,
		conversation.TagAlgo, conversation.TagML, conversation.TagInterview,
		conversation.TagTest, conversation.TagRoadmap, conversation.TagPsycho,
		conversation.TagCodeExplain, conversation.TagCodeBug,
		conversation.TagCodeRefactor, conversation.TagCodeReview,
		conversation.TagCodeWrite, conversation.TagInstruct, conversation.TagEDA,
		conversation.TagMemeImage, conversation.TagMemeReaction,
		conversation.TagLevel, conversation.TagDifficulty,
		conversation.TagLevelIntern, conversation.TagLevelJunior,
		conversation.TagLevelMiddle, conversation.TagLevelSenior,
		conversation.TagDifficultyEasy, conversation.TagDifficultyMedium,
		conversation.TagDifficultyHard,
	}
	for _, tag := range tags {
		tag := tag
		err := reg.RegisterCallback(tag, func(c tele.Context) error {
			return a.dispatch(c, conversation.Event{Kind: conversation.EventButton, Tag: tag})
		})
		if err != nil {
			return fmt.Errorf("handlers: register callback %s: %w", tag, err)
		}
	}
	return nil
}

func (a *App) commandHandler(cmd conversation.Command) tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.dispatch(c, conversation.Event{Kind: conversation.EventCommand, Command: cmd})
	}
}

func (a *App) hintHandler(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, text)
	}
}

func (a *App) statsHandler(c tele.Context) error {
	total, inDialog := a.sessions.Stats()
	return tghelpers.SendText(c, fmt.Sprintf("Сессий: %d, в диалоге: %d", total, inDialog))
}
