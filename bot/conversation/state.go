package conversation

import (
	"github.com/dsprep/prepbot/bot/prompts"
)

// State is a node of the conversation graph.
type State string

const (
	StateRoot               State = "root"
	StateMenuKnowledge      State = "menu_knowledge"
	StateMenuProblem        State = "menu_problem"
	StateMenuMeme           State = "menu_meme"
	StateMenuSettings       State = "menu_settings"
	StateSettingsLevel      State = "settings_level"
	StateSettingsDifficulty State = "settings_difficulty"
	StateAwaitInput         State = "await_input"
	StateAwaitMemeImage     State = "await_meme_image"
	StateAwaitDataset       State = "await_dataset"
	StateDialogAlgo         State = "dialog_algo"
	StateDialogML           State = "dialog_ml"
	StateDialogInterview    State = "dialog_interview"
	StateDialogTest         State = "dialog_test"
	StateDialogRoadmap      State = "dialog_roadmap"
	StateDialogPsycho       State = "dialog_psycho"
	StateDialogMeme         State = "dialog_meme"
)

// IsDialog reports whether s is a self-looping multi-turn dialog state.
func (s State) IsDialog() bool {
	switch s {
	case StateDialogAlgo, StateDialogML, StateDialogInterview,
		StateDialogTest, StateDialogRoadmap, StateDialogPsycho, StateDialogMeme:
		return true
	}
	return false
}

// Level is the user's target preparation level.
type Level string

const (
	LevelIntern Level = "INTERN"
	LevelJunior Level = "JUNIOR"
	LevelMiddle Level = "MIDDLE"
	LevelSenior Level = "SENIOR"
)

// ParseLevel validates a raw tag against the known levels.
func ParseLevel(raw string) (Level, bool) {
	switch Level(raw) {
	case LevelIntern, LevelJunior, LevelMiddle, LevelSenior:
		return Level(raw), true
	}
	return "", false
}

// Difficulty grades the exercises the bot generates.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// ParseDifficulty validates a raw tag against the known difficulties.
func ParseDifficulty(raw string) (Difficulty, bool) {
	switch Difficulty(raw) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(raw), true
	}
	return "", false
}

// Settings holds the per-user preferences that gate coached dialogs.
// Zero values mean "not configured yet"; no defaults are applied.
type Settings struct {
	Level      Level
	Difficulty Difficulty
}

// Configured reports whether both fields have been explicitly set.
func (s Settings) Configured() bool {
	return s.Level != "" && s.Difficulty != ""
}

// PromptKind identifies which one-shot prompt applies to the next free-text
// input while in StateAwaitInput.
type PromptKind string

const (
	PromptNone         PromptKind = ""
	PromptCodeExplain  PromptKind = "code_explain"
	PromptCodeFindBug  PromptKind = "code_find_bug"
	PromptCodeRefactor PromptKind = "code_refactor"
	PromptCodeReview   PromptKind = "code_review"
	PromptTaskWrite    PromptKind = "task_write"
	PromptTaskInstruct PromptKind = "task_instruct"
)

// Session is the complete per-user conversation state. It is a value:
// HandleEvent never mutates its input and returns the next session instead.
type Session struct {
	State         State
	Settings      Settings
	Topic         string
	Transcript    []prompts.Message
	PendingPrompt PromptKind
}

// NewSession returns a fresh session positioned at the root menu.
func NewSession() Session {
	return Session{State: StateRoot}
}

// reset returns the session to root, clearing dialog data but keeping
// settings.
func (s Session) reset() Session {
	return Session{State: StateRoot, Settings: s.Settings}
}

// enterDialog positions the session in a dialog state with a clean
// transcript and topic.
func (s Session) enterDialog(state State) Session {
	next := s
	next.State = state
	next.Topic = ""
	next.Transcript = nil
	next.PendingPrompt = PromptNone
	return next
}
