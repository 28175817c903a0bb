package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dsprep/prepbot/bot/chunk"
	"github.com/dsprep/prepbot/bot/prompts"
	"github.com/dsprep/prepbot/core/logger"
)

// Completer is the language-model client the router drives. Complete
// returns the full reply; CompleteStream delivers the reply incrementally
// through emit as fragments arrive.
type Completer interface {
	Complete(ctx context.Context, messages []prompts.Message) (string, error)
	CompleteStream(ctx context.Context, messages []prompts.Message, emit func(fragment string) error) error
}

// EmitFunc delivers one outbound message to the transport. A non-nil error
// aborts processing of the current event.
type EmitFunc func(out Outbound) error

// Options tunes an Engine.
type Options struct {
	// MaxChunkLen caps streamed chunk size; 0 means the Telegram limit.
	MaxChunkLen int
	// HistoryLimit caps the transcript length in messages; 0 means unlimited.
	HistoryLimit int
}

// Engine routes normalized events through the conversation graph. It is
// stateless: all per-user data travels in the Session value.
type Engine struct {
	llm     Completer
	maxLen  int
	history int
}

const defaultMaxChunkLen = 4096

func NewEngine(llm Completer, opts Options) *Engine {
	maxLen := opts.MaxChunkLen
	if maxLen <= 0 {
		maxLen = defaultMaxChunkLen
	}
	history := opts.HistoryLimit
	if history < 0 {
		history = 0
	}
	return &Engine{llm: llm, maxLen: maxLen, history: history}
}

// HandleEvent advances the session by one event. It returns the next
// session value; on error the returned session is still the one to keep
// (usually unchanged). Outbound messages go through emit in order.
func (e *Engine) HandleEvent(ctx context.Context, sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind == EventCommand {
		return e.handleCommand(sess, ev.Command, emit)
	}

	next, err := e.dispatch(ctx, sess, ev, emit)
	if err == nil && next.State != sess.State {
		logger.Debug(ctx, "conv", "state_transition",
			slog.String("from", string(sess.State)),
			slog.String("to", string(next.State)))
	}
	return next, err
}

func (e *Engine) handleCommand(sess Session, cmd Command, emit EmitFunc) (Session, error) {
	switch cmd {
	case CommandStart:
		next := sess.reset()
		if err := emit(Outbound{Menu: RootMenu()}); err != nil {
			return sess, transportFailure(err)
		}
		return next, nil
	case CommandCancel:
		next := sess.reset()
		if err := emit(Outbound{Text: "Беседа завершена.", RemoveKeyboard: true}); err != nil {
			return sess, transportFailure(err)
		}
		return next, nil
	case CommandFinish:
		next := sess.reset()
		if err := emit(Outbound{Text: "Диалог завершен.", RemoveKeyboard: true}); err != nil {
			return sess, transportFailure(err)
		}
		if err := emit(Outbound{Menu: RootMenu()}); err != nil {
			return sess, transportFailure(err)
		}
		return next, nil
	}
	return sess, unsupportedChoice(string(cmd))
}

func (e *Engine) dispatch(ctx context.Context, sess Session, ev Event, emit EmitFunc) (Session, error) {
	switch sess.State {
	case StateRoot:
		return e.handleRoot(sess, ev, emit)
	case StateMenuKnowledge:
		return e.handleKnowledgeMenu(sess, ev, emit)
	case StateMenuProblem:
		return e.handleProblemMenu(sess, ev, emit)
	case StateMenuMeme:
		return e.handleMemeMenu(sess, ev, emit)
	case StateMenuSettings:
		return e.handleSettingsMenu(sess, ev, emit)
	case StateSettingsLevel:
		return e.handleLevelPick(sess, ev, emit)
	case StateSettingsDifficulty:
		return e.handleDifficultyPick(sess, ev, emit)
	case StateAwaitInput:
		return e.handleAwaitInput(ctx, sess, ev, emit)
	case StateAwaitMemeImage:
		return e.handleAwaitMemeImage(ctx, sess, ev, emit)
	case StateAwaitDataset:
		return e.handleAwaitDataset(ctx, sess, ev, emit)
	}
	if sess.State.IsDialog() {
		return e.handleDialog(ctx, sess, ev, emit)
	}
	return sess, unsupportedChoice(string(sess.State))
}

func (e *Engine) handleRoot(sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventButton {
		if err := emit(Outbound{Text: "Выберите действие из меню.", Menu: RootMenu()}); err != nil {
			return sess, transportFailure(err)
		}
		return sess, nil
	}
	var menu *Menu
	var state State
	switch ev.Tag {
	case TagKnowledge:
		menu, state = KnowledgeMenu(), StateMenuKnowledge
	case TagProblem:
		menu, state = ProblemMenu(), StateMenuProblem
	case TagMeme:
		menu, state = MemeMenu(), StateMenuMeme
	case TagSettings:
		menu, state = SettingsMenu(sess.Settings), StateMenuSettings
	default:
		return sess, unsupportedChoice(ev.Tag)
	}
	if err := emit(Outbound{Menu: menu}); err != nil {
		return sess, transportFailure(err)
	}
	next := sess
	next.State = state
	return next, nil
}

func (e *Engine) handleKnowledgeMenu(sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventButton {
		return sess, unsupportedChoice(string(ev.Kind))
	}
	if ev.Tag == TagBack {
		return e.backToRoot(sess, emit)
	}

	var state State
	var intro string
	gated := true
	switch ev.Tag {
	case TagAlgo:
		state, intro = StateDialogAlgo, "Напишите тему, по которой хотите получить задачу на алгоритмы."
	case TagML:
		state, intro = StateDialogML, "Напишите тему, по которой хотите получить задачу по ML."
	case TagInterview:
		state, intro = StateDialogInterview, "Напишите тему собеседования."
	case TagTest:
		state, intro = StateDialogTest, "Напишите тему, по которой хотите пройти тест."
	case TagRoadmap:
		state, intro = StateDialogRoadmap, "Напишите тему, по которой нужен план подготовки."
	case TagPsycho:
		state, intro = StateDialogPsycho, "Расскажите, что вас беспокоит перед собеседованием."
		gated = false
	default:
		return sess, unsupportedChoice(ev.Tag)
	}

	if gated && !sess.Settings.Configured() {
		userText := "Сначала задайте уровень подготовки и сложность в настройках."
		if err := emit(Outbound{Text: userText}); err != nil {
			return sess, transportFailure(err)
		}
		return sess, invalidInput("", fmt.Errorf("settings not configured"))
	}

	if err := emit(Outbound{Text: intro, ShowFinish: true}); err != nil {
		return sess, transportFailure(err)
	}
	return sess.enterDialog(state), nil
}

func (e *Engine) handleProblemMenu(sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventButton {
		return sess, unsupportedChoice(string(ev.Kind))
	}
	if ev.Tag == TagBack {
		return e.backToRoot(sess, emit)
	}

	if ev.Tag == TagEDA {
		if err := emit(Outbound{Text: "Пришлите файл с датасетом (csv)."}); err != nil {
			return sess, transportFailure(err)
		}
		next := sess
		next.State = StateAwaitDataset
		next.PendingPrompt = PromptNone
		return next, nil
	}

	var kind PromptKind
	var ask string
	switch ev.Tag {
	case TagCodeExplain:
		kind, ask = PromptCodeExplain, "Пришлите код, который нужно объяснить."
	case TagCodeBug:
		kind, ask = PromptCodeFindBug, "Пришлите код, в котором нужно найти баг."
	case TagCodeRefactor:
		kind, ask = PromptCodeRefactor, "Пришлите код для рефакторинга."
	case TagCodeReview:
		kind, ask = PromptCodeReview, "Пришлите код на ревью."
	case TagCodeWrite:
		kind, ask = PromptTaskWrite, "Опишите задачу, по которой нужно написать код."
	case TagInstruct:
		kind, ask = PromptTaskInstruct, "Опишите задачу, для которой нужна инструкция."
	default:
		return sess, unsupportedChoice(ev.Tag)
	}

	if err := emit(Outbound{Text: ask}); err != nil {
		return sess, transportFailure(err)
	}
	next := sess
	next.State = StateAwaitInput
	next.PendingPrompt = kind
	return next, nil
}

func (e *Engine) handleMemeMenu(sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventButton {
		return sess, unsupportedChoice(string(ev.Kind))
	}
	switch ev.Tag {
	case TagBack:
		return e.backToRoot(sess, emit)
	case TagMemeImage:
		if err := emit(Outbound{Text: "Пришлите картинку с мемом."}); err != nil {
			return sess, transportFailure(err)
		}
		next := sess
		next.State = StateAwaitMemeImage
		return next, nil
	case TagMemeReaction:
		if err := emit(Outbound{Text: "Опишите мем текстом.", ShowFinish: true}); err != nil {
			return sess, transportFailure(err)
		}
		return sess.enterDialog(StateDialogMeme), nil
	}
	return sess, unsupportedChoice(ev.Tag)
}

func (e *Engine) handleSettingsMenu(sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventButton {
		return sess, unsupportedChoice(string(ev.Kind))
	}
	switch ev.Tag {
	case TagBack:
		return e.backToRoot(sess, emit)
	case TagLevel:
		if err := emit(Outbound{Menu: LevelMenu()}); err != nil {
			return sess, transportFailure(err)
		}
		next := sess
		next.State = StateSettingsLevel
		return next, nil
	case TagDifficulty:
		if err := emit(Outbound{Menu: DifficultyMenu()}); err != nil {
			return sess, transportFailure(err)
		}
		next := sess
		next.State = StateSettingsDifficulty
		return next, nil
	}
	return sess, unsupportedChoice(ev.Tag)
}

func (e *Engine) handleLevelPick(sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventButton {
		return sess, unsupportedChoice(string(ev.Kind))
	}
	if ev.Tag == TagBack {
		return e.backToSettings(sess, emit)
	}
	level, ok := ParseLevel(ev.Tag)
	if !ok {
		return sess, unsupportedChoice(ev.Tag)
	}
	next := sess
	next.Settings.Level = level
	next.State = StateMenuSettings
	if err := emit(Outbound{Menu: SettingsMenu(next.Settings)}); err != nil {
		return sess, transportFailure(err)
	}
	logger.Info(logger.Background(), "conv", "level_updated", slog.String("level", string(level)))
	return next, nil
}

func (e *Engine) handleDifficultyPick(sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventButton {
		return sess, unsupportedChoice(string(ev.Kind))
	}
	if ev.Tag == TagBack {
		return e.backToSettings(sess, emit)
	}
	difficulty, ok := ParseDifficulty(ev.Tag)
	if !ok {
		return sess, unsupportedChoice(ev.Tag)
	}
	next := sess
	next.Settings.Difficulty = difficulty
	next.State = StateMenuSettings
	if err := emit(Outbound{Menu: SettingsMenu(next.Settings)}); err != nil {
		return sess, transportFailure(err)
	}
	logger.Info(logger.Background(), "conv", "difficulty_updated", slog.String("difficulty", string(difficulty)))
	return next, nil
}

func (e *Engine) handleAwaitInput(ctx context.Context, sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventText || ev.Text == "" {
		return sess, invalidInput("Пришлите текст.", fmt.Errorf("expected text, got %s", ev.Kind))
	}

	messages, err := oneShotMessages(sess.PendingPrompt, ev.Text)
	if err != nil {
		return sess.reset(), invalidInput("", err)
	}

	reply, err := e.llm.Complete(ctx, messages)
	if err != nil {
		next, eerr := e.backToRoot(sess, emit)
		if eerr != nil {
			return next, eerr
		}
		return next, providerFailure(err)
	}

	if err := emit(Outbound{Text: reply}); err != nil {
		return sess, transportFailure(err)
	}
	return e.backToRoot(sess, emit)
}

func oneShotMessages(kind PromptKind, text string) ([]prompts.Message, error) {
	switch kind {
	case PromptCodeExplain:
		return prompts.Code(text, prompts.CodeExplain)
	case PromptCodeFindBug:
		return prompts.Code(text, prompts.CodeFindBug)
	case PromptCodeRefactor:
		return prompts.Code(text, prompts.CodeRefactor)
	case PromptCodeReview:
		return prompts.Code(text, prompts.CodeReview)
	case PromptTaskWrite:
		return prompts.Task(text, prompts.TaskImplement)
	case PromptTaskInstruct:
		return prompts.Task(text, prompts.TaskInstruct)
	}
	return nil, fmt.Errorf("no pending prompt for kind %q", kind)
}

func (e *Engine) handleAwaitMemeImage(ctx context.Context, sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventImage || len(ev.Image) == 0 {
		return sess, invalidInput("Пришлите картинку.", fmt.Errorf("expected image, got %s", ev.Kind))
	}

	reply, err := e.llm.Complete(ctx, prompts.MemeImage(ev.Image))
	if err != nil {
		next, eerr := e.backToRoot(sess, emit)
		if eerr != nil {
			return next, eerr
		}
		return next, providerFailure(err)
	}

	if err := emit(Outbound{Text: reply}); err != nil {
		return sess, transportFailure(err)
	}
	return e.backToRoot(sess, emit)
}

func (e *Engine) handleAwaitDataset(ctx context.Context, sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventDocument || len(ev.Data) == 0 {
		return sess, invalidInput("Пришлите файл с датасетом.", fmt.Errorf("expected document, got %s", ev.Kind))
	}

	preview := datasetPreview(ev.Name, ev.Data)
	asm := chunk.NewAssembler(e.maxLen)
	send := func(parts []string) error {
		for _, part := range parts {
			if err := emit(Outbound{Text: part, Chunked: true}); err != nil {
				return err
			}
		}
		return nil
	}

	err := e.llm.CompleteStream(ctx, prompts.EDA(preview), func(fragment string) error {
		return send(asm.Push(fragment))
	})
	if err != nil {
		next, eerr := e.backToRoot(sess, emit)
		if eerr != nil {
			return next, eerr
		}
		return next, providerFailure(err)
	}
	if err := send(asm.Flush()); err != nil {
		return sess, transportFailure(err)
	}
	return e.backToRoot(sess, emit)
}

// datasetPreview caps the document text sent to the provider. Non-UTF8
// bytes pass through untouched; the provider tolerates them.
func datasetPreview(name string, data []byte) string {
	const maxPreview = 8 << 10
	if len(data) > maxPreview {
		data = data[:maxPreview]
	}
	return fmt.Sprintf("File: %s\n\n%s", name, data)
}

func (e *Engine) handleDialog(ctx context.Context, sess Session, ev Event, emit EmitFunc) (Session, error) {
	if ev.Kind != EventText || ev.Text == "" {
		return sess, invalidInput("Пришлите текст.", fmt.Errorf("expected text, got %s", ev.Kind))
	}

	// Topic-driven dialogs consume the first message as the topic without
	// touching the provider; the next message starts the exchange.
	if dialogNeedsTopic(sess.State) && sess.Topic == "" {
		next := sess
		next.Topic = ev.Text
		if err := emit(Outbound{
			Text:       "Тема принята. Напишите любое сообщение, чтобы получить задание.",
			ShowFinish: true,
		}); err != nil {
			return sess, transportFailure(err)
		}
		return next, nil
	}
	return e.continueDialog(ctx, sess, ev.Text, emit)
}

func (e *Engine) continueDialog(ctx context.Context, sess Session, text string, emit EmitFunc) (Session, error) {
	transcript := append(append([]prompts.Message(nil), sess.Transcript...), prompts.User(text))
	messages := dialogMessages(sess, transcript)

	reply, err := e.llm.Complete(ctx, messages)
	if err != nil {
		return sess, providerFailure(err)
	}

	next := sess
	next.Transcript = trimTranscript(append(transcript, prompts.Assistant(reply)), e.history)
	if err := emit(Outbound{Text: reply, ShowFinish: true}); err != nil {
		return sess, transportFailure(err)
	}
	return next, nil
}

func dialogNeedsTopic(state State) bool {
	switch state {
	case StateDialogAlgo, StateDialogML, StateDialogInterview, StateDialogTest, StateDialogRoadmap:
		return true
	}
	return false
}

func dialogMessages(sess Session, transcript []prompts.Message) []prompts.Message {
	level := string(sess.Settings.Level)
	difficulty := string(sess.Settings.Difficulty)
	switch sess.State {
	case StateDialogAlgo:
		return prompts.AlgoTask(level, difficulty, sess.Topic, transcript)
	case StateDialogML:
		return prompts.MLTask(level, difficulty, sess.Topic, transcript)
	case StateDialogInterview:
		return prompts.Interview(level, difficulty, sess.Topic, transcript)
	case StateDialogTest:
		return prompts.Quiz(level, difficulty, sess.Topic, transcript)
	case StateDialogRoadmap:
		return prompts.Roadmap(level, difficulty, sess.Topic, transcript)
	case StateDialogPsycho:
		return prompts.Psycho(transcript)
	case StateDialogMeme:
		return prompts.MemeReaction(transcript)
	}
	return transcript
}

// trimTranscript drops the oldest turns past the limit, keeping pairs
// aligned so the transcript never starts with an assistant turn.
// A non-positive limit keeps everything.
func trimTranscript(transcript []prompts.Message, limit int) []prompts.Message {
	if limit <= 0 || len(transcript) <= limit {
		return transcript
	}
	drop := len(transcript) - limit
	if transcript[drop].Role == prompts.RoleAssistant {
		drop++
	}
	return transcript[drop:]
}

func (e *Engine) backToRoot(sess Session, emit EmitFunc) (Session, error) {
	if err := emit(Outbound{Menu: RootMenu()}); err != nil {
		return sess, transportFailure(err)
	}
	next := sess
	next.State = StateRoot
	next.PendingPrompt = PromptNone
	next.Topic = ""
	next.Transcript = nil
	return next, nil
}

func (e *Engine) backToSettings(sess Session, emit EmitFunc) (Session, error) {
	if err := emit(Outbound{Menu: SettingsMenu(sess.Settings)}); err != nil {
		return sess, transportFailure(err)
	}
	next := sess
	next.State = StateMenuSettings
	return next, nil
}
