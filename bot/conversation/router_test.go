package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsprep/prepbot/bot/prompts"
)

type fakeLLM struct {
	reply     string
	err       error
	stream    []string
	streamErr error
	calls     [][]prompts.Message
}

func (f *fakeLLM) Complete(_ context.Context, msgs []prompts.Message) (string, error) {
	f.calls = append(f.calls, msgs)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) CompleteStream(_ context.Context, msgs []prompts.Message, emit func(string) error) error {
	f.calls = append(f.calls, msgs)
	if f.streamErr != nil {
		return f.streamErr
	}
	for _, p := range f.stream {
		if err := emit(p); err != nil {
			return err
		}
	}
	return nil
}

type recorder struct {
	out []Outbound
}

func (r *recorder) emit(o Outbound) error {
	r.out = append(r.out, o)
	return nil
}

func configuredSession(state State) Session {
	return Session{
		State:    state,
		Settings: Settings{Level: LevelMiddle, Difficulty: DifficultyMedium},
	}
}

func TestRootButtonOpensKnowledgeMenu(t *testing.T) {
	eng := NewEngine(&fakeLLM{}, Options{})
	rec := &recorder{}

	next, err := eng.HandleEvent(context.Background(), NewSession(),
		Event{Kind: EventButton, Tag: TagKnowledge}, rec.emit)

	require.NoError(t, err)
	assert.Equal(t, StateMenuKnowledge, next.State)
	require.Len(t, rec.out, 1)
	require.NotNil(t, rec.out[0].Menu)
	assert.Equal(t, "Что прокачиваем?", rec.out[0].Menu.Text)
}

func TestRootTextRepeatsMenu(t *testing.T) {
	eng := NewEngine(&fakeLLM{}, Options{})
	rec := &recorder{}

	next, err := eng.HandleEvent(context.Background(), NewSession(),
		Event{Kind: EventText, Text: "привет"}, rec.emit)

	require.NoError(t, err)
	assert.Equal(t, StateRoot, next.State)
	require.Len(t, rec.out, 1)
	assert.NotNil(t, rec.out[0].Menu)
}

func TestKnowledgeGateRequiresSettings(t *testing.T) {
	llm := &fakeLLM{}
	eng := NewEngine(llm, Options{})
	rec := &recorder{}
	sess := Session{State: StateMenuKnowledge}

	next, err := eng.HandleEvent(context.Background(), sess,
		Event{Kind: EventButton, Tag: TagAlgo}, rec.emit)

	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, sess, next)
	assert.Empty(t, llm.calls)
	require.Len(t, rec.out, 1)
	assert.Contains(t, rec.out[0].Text, "настройках")
}

func TestPsychoBypassesSettingsGate(t *testing.T) {
	eng := NewEngine(&fakeLLM{}, Options{})
	rec := &recorder{}

	next, err := eng.HandleEvent(context.Background(), Session{State: StateMenuKnowledge},
		Event{Kind: EventButton, Tag: TagPsycho}, rec.emit)

	require.NoError(t, err)
	assert.Equal(t, StateDialogPsycho, next.State)
	require.Len(t, rec.out, 1)
	assert.True(t, rec.out[0].ShowFinish)
}

func TestDialogTopicCapturedWithoutProviderCall(t *testing.T) {
	llm := &fakeLLM{reply: "Вот задача про графы."}
	eng := NewEngine(llm, Options{})
	rec := &recorder{}
	sess := configuredSession(StateDialogAlgo)

	next, err := eng.HandleEvent(context.Background(), sess,
		Event{Kind: EventText, Text: "графы"}, rec.emit)

	require.NoError(t, err)
	assert.Equal(t, "графы", next.Topic)
	assert.Equal(t, StateDialogAlgo, next.State)
	assert.Empty(t, llm.calls)
	assert.Empty(t, next.Transcript)
	require.Len(t, rec.out, 1)
	assert.True(t, rec.out[0].ShowFinish)

	// The next message starts the exchange with the topic in the system prompt.
	next, err = eng.HandleEvent(context.Background(), next,
		Event{Kind: EventText, Text: "давай"}, rec.emit)

	require.NoError(t, err)
	require.Len(t, llm.calls, 1)
	require.NotEmpty(t, llm.calls[0])
	assert.Equal(t, prompts.RoleSystem, llm.calls[0][0].Role)
	assert.Contains(t, llm.calls[0][0].Content, "графы")
	assert.Contains(t, llm.calls[0][0].Content, "MIDDLE")

	require.Len(t, next.Transcript, 2)
	assert.Equal(t, prompts.RoleUser, next.Transcript[0].Role)
	assert.Equal(t, prompts.RoleAssistant, next.Transcript[1].Role)

	last := rec.out[len(rec.out)-1]
	assert.Equal(t, "Вот задача про графы.", last.Text)
	assert.True(t, last.ShowFinish)
}

func TestDialogKeepsHistoryAcrossTurns(t *testing.T) {
	llm := &fakeLLM{reply: "ответ"}
	eng := NewEngine(llm, Options{})
	rec := &recorder{}
	sess := configuredSession(StateDialogPsycho)

	ctx := context.Background()
	var err error
	sess, err = eng.HandleEvent(ctx, sess, Event{Kind: EventText, Text: "мне страшно"}, rec.emit)
	require.NoError(t, err)
	sess, err = eng.HandleEvent(ctx, sess, Event{Kind: EventText, Text: "что делать?"}, rec.emit)
	require.NoError(t, err)

	require.Len(t, sess.Transcript, 4)
	require.Len(t, llm.calls, 2)
	// The second call carries the full history after the system prompt.
	second := llm.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, "мне страшно", second[1].Content)
	assert.Equal(t, "ответ", second[2].Content)
	assert.Equal(t, "что делать?", second[3].Content)
}

func TestDialogProviderFailureLeavesSessionUnchanged(t *testing.T) {
	llm := &fakeLLM{err: errors.New("upstream 500")}
	eng := NewEngine(llm, Options{})
	rec := &recorder{}
	sess := configuredSession(StateDialogPsycho)
	sess.Transcript = []prompts.Message{prompts.User("раньше"), prompts.Assistant("угу")}

	next, err := eng.HandleEvent(context.Background(), sess,
		Event{Kind: EventText, Text: "еще вопрос"}, rec.emit)

	assert.Equal(t, KindProviderFailure, KindOf(err))
	assert.Equal(t, sess, next)
	assert.Empty(t, rec.out)
}

func TestDialogStaysPutOnProviderFailureAfterTopic(t *testing.T) {
	llm := &fakeLLM{err: errors.New("timeout")}
	eng := NewEngine(llm, Options{})
	rec := &recorder{}
	sess := configuredSession(StateDialogAlgo)
	sess.Topic = "деревья"

	next, err := eng.HandleEvent(context.Background(), sess,
		Event{Kind: EventText, Text: "начнем"}, rec.emit)

	assert.Equal(t, KindProviderFailure, KindOf(err))
	assert.Equal(t, sess, next)
	assert.Empty(t, rec.out)
}

func TestTranscriptTrimmedToHistoryLimit(t *testing.T) {
	llm := &fakeLLM{reply: "ок"}
	eng := NewEngine(llm, Options{HistoryLimit: 4})
	rec := &recorder{}
	sess := configuredSession(StateDialogPsycho)

	ctx := context.Background()
	var err error
	for i := 0; i < 5; i++ {
		sess, err = eng.HandleEvent(ctx, sess, Event{Kind: EventText, Text: "вопрос"}, rec.emit)
		require.NoError(t, err)
	}

	assert.Len(t, sess.Transcript, 4)
	assert.Equal(t, prompts.RoleUser, sess.Transcript[0].Role)
}

func TestSettingsFlow(t *testing.T) {
	eng := NewEngine(&fakeLLM{}, Options{})
	rec := &recorder{}
	ctx := context.Background()

	sess, err := eng.HandleEvent(ctx, NewSession(), Event{Kind: EventButton, Tag: TagSettings}, rec.emit)
	require.NoError(t, err)
	require.Equal(t, StateMenuSettings, sess.State)

	sess, err = eng.HandleEvent(ctx, sess, Event{Kind: EventButton, Tag: TagLevel}, rec.emit)
	require.NoError(t, err)
	require.Equal(t, StateSettingsLevel, sess.State)

	sess, err = eng.HandleEvent(ctx, sess, Event{Kind: EventButton, Tag: TagLevelJunior}, rec.emit)
	require.NoError(t, err)
	assert.Equal(t, StateMenuSettings, sess.State)
	assert.Equal(t, LevelJunior, sess.Settings.Level)
	assert.False(t, sess.Settings.Configured())

	sess, err = eng.HandleEvent(ctx, sess, Event{Kind: EventButton, Tag: TagDifficulty}, rec.emit)
	require.NoError(t, err)
	sess, err = eng.HandleEvent(ctx, sess, Event{Kind: EventButton, Tag: TagDifficultyHard}, rec.emit)
	require.NoError(t, err)
	assert.Equal(t, DifficultyHard, sess.Settings.Difficulty)
	assert.True(t, sess.Settings.Configured())

	menu := rec.out[len(rec.out)-1].Menu
	require.NotNil(t, menu)
	assert.Contains(t, menu.Text, "JUNIOR")
	assert.Contains(t, menu.Text, "HARD")
}

func TestOneShotCodeExplain(t *testing.T) {
	llm := &fakeLLM{reply: "Этот код сортирует список."}
	eng := NewEngine(llm, Options{})
	rec := &recorder{}
	sess := Session{State: StateAwaitInput, PendingPrompt: PromptCodeExplain}

	next, err := eng.HandleEvent(context.Background(), sess,
		Event{Kind: EventText, Text: "sorted(xs)"}, rec.emit)

	require.NoError(t, err)
	assert.Equal(t, StateRoot, next.State)
	assert.Equal(t, PromptNone, next.PendingPrompt)

	require.Len(t, llm.calls, 1)
	assert.Contains(t, llm.calls[0][0].Content, "analyse, explain and interpret")
	assert.Equal(t, "sorted(xs)", llm.calls[0][1].Content)

	require.Len(t, rec.out, 2)
	assert.Equal(t, "Этот код сортирует список.", rec.out[0].Text)
	assert.NotNil(t, rec.out[1].Menu)
}

func TestOneShotProviderFailureReturnsToRoot(t *testing.T) {
	llm := &fakeLLM{err: errors.New("bad gateway")}
	eng := NewEngine(llm, Options{})
	rec := &recorder{}
	sess := Session{State: StateAwaitInput, PendingPrompt: PromptTaskInstruct}

	next, err := eng.HandleEvent(context.Background(), sess,
		Event{Kind: EventText, Text: "собрать пайплайн"}, rec.emit)

	assert.Equal(t, KindProviderFailure, KindOf(err))
	assert.Equal(t, StateRoot, next.State)
}

func TestMemeImageFlow(t *testing.T) {
	llm := &fakeLLM{reply: "Смешно из-за несоответствия ожиданий."}
	eng := NewEngine(llm, Options{})
	rec := &recorder{}
	sess := Session{State: StateAwaitMemeImage}

	next, err := eng.HandleEvent(context.Background(), sess,
		Event{Kind: EventImage, Image: []byte{0xff, 0xd8}}, rec.emit)

	require.NoError(t, err)
	assert.Equal(t, StateRoot, next.State)
	require.Len(t, llm.calls, 1)
	require.Len(t, llm.calls[0], 1)
	assert.NotEmpty(t, llm.calls[0][0].Image)
}

func TestMemeImageRejectsText(t *testing.T) {
	eng := NewEngine(&fakeLLM{}, Options{})
	rec := &recorder{}
	sess := Session{State: StateAwaitMemeImage}

	next, err := eng.HandleEvent(context.Background(), sess,
		Event{Kind: EventText, Text: "вот мем"}, rec.emit)

	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, sess, next)
}

func TestDatasetStreaming(t *testing.T) {
	llm := &fakeLLM{stream: []string{"Колонки: id, name.\n", "Пропусков ", "нет.\n"}}
	eng := NewEngine(llm, Options{})
	rec := &recorder{}
	sess := Session{State: StateAwaitDataset}

	next, err := eng.HandleEvent(context.Background(), sess,
		Event{Kind: EventDocument, Data: []byte("id,name\n1,a\n"), Name: "data.csv"}, rec.emit)

	require.NoError(t, err)
	assert.Equal(t, StateRoot, next.State)

	require.Len(t, llm.calls, 1)
	preview := llm.calls[0][1].Content
	assert.Contains(t, preview, "data.csv")
	assert.Contains(t, preview, "id,name")

	var chunked []string
	for _, o := range rec.out {
		if o.Chunked {
			chunked = append(chunked, o.Text)
		}
	}
	joined := strings.Join(chunked, "\n")
	assert.Contains(t, joined, "Колонки: id, name.")
	assert.Contains(t, joined, "Пропусков нет.")
	assert.NotNil(t, rec.out[len(rec.out)-1].Menu)
}

func TestCommands(t *testing.T) {
	eng := NewEngine(&fakeLLM{}, Options{})
	ctx := context.Background()

	t.Run("cancel resets and removes keyboard", func(t *testing.T) {
		rec := &recorder{}
		sess := configuredSession(StateDialogAlgo)
		sess.Topic = "графы"

		next, err := eng.HandleEvent(ctx, sess, Event{Kind: EventCommand, Command: CommandCancel}, rec.emit)

		require.NoError(t, err)
		assert.Equal(t, StateRoot, next.State)
		assert.Empty(t, next.Topic)
		assert.Equal(t, sess.Settings, next.Settings)
		require.Len(t, rec.out, 1)
		assert.True(t, rec.out[0].RemoveKeyboard)
	})

	t.Run("finish returns to root menu", func(t *testing.T) {
		rec := &recorder{}
		sess := configuredSession(StateDialogPsycho)

		next, err := eng.HandleEvent(ctx, sess, Event{Kind: EventCommand, Command: CommandFinish}, rec.emit)

		require.NoError(t, err)
		assert.Equal(t, StateRoot, next.State)
		require.Len(t, rec.out, 2)
		assert.True(t, rec.out[0].RemoveKeyboard)
		assert.NotNil(t, rec.out[1].Menu)
	})
}

func TestUnknownButtonRejected(t *testing.T) {
	eng := NewEngine(&fakeLLM{}, Options{})
	rec := &recorder{}

	next, err := eng.HandleEvent(context.Background(), NewSession(),
		Event{Kind: EventButton, Tag: "NO_SUCH_TAG"}, rec.emit)

	assert.Equal(t, KindUnsupportedChoice, KindOf(err))
	assert.Equal(t, StateRoot, next.State)
	assert.Empty(t, rec.out)
}

func TestNextStateAlwaysKnown(t *testing.T) {
	known := map[State]bool{
		StateRoot: true, StateMenuKnowledge: true, StateMenuProblem: true,
		StateMenuMeme: true, StateMenuSettings: true, StateSettingsLevel: true,
		StateSettingsDifficulty: true, StateAwaitInput: true,
		StateAwaitMemeImage: true, StateAwaitDataset: true,
		StateDialogAlgo: true, StateDialogML: true, StateDialogInterview: true,
		StateDialogTest: true, StateDialogRoadmap: true,
		StateDialogPsycho: true, StateDialogMeme: true,
	}

	eng := NewEngine(&fakeLLM{reply: "ок"}, Options{})
	rec := &recorder{}
	ctx := context.Background()

	events := []Event{
		{Kind: EventButton, Tag: TagKnowledge},
		{Kind: EventButton, Tag: TagPsycho},
		{Kind: EventText, Text: "поговорим"},
		{Kind: EventCommand, Command: CommandFinish},
		{Kind: EventButton, Tag: TagProblem},
		{Kind: EventButton, Tag: TagEDA},
		{Kind: EventCommand, Command: CommandCancel},
	}

	sess := NewSession()
	for _, ev := range events {
		next, err := eng.HandleEvent(ctx, sess, ev, rec.emit)
		require.NoError(t, err)
		require.True(t, known[next.State], "unknown state %q", next.State)
		sess = next
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	assert.False(t, store.Known(1))
	assert.Equal(t, StateRoot, store.Get(1).State)

	sess := configuredSession(StateDialogAlgo)
	store.Put(1, sess)
	store.Put(2, NewSession())

	assert.True(t, store.Known(1))
	assert.Equal(t, sess, store.Get(1))

	total, inDialog := store.Stats()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, inDialog)

	store.Reset(1)
	assert.False(t, store.Known(1))
}
