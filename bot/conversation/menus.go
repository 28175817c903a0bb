package conversation

// Button is one inline-keyboard choice; Tag is the callback payload.
type Button struct {
	Label string
	Tag   string
}

// Menu is an inline keyboard with a caption.
type Menu struct {
	Text string
	Rows [][]Button
}

// Callback tags. Values are wire identifiers and must stay stable across
// releases: they end up inside Telegram callback payloads that may arrive
// long after the keyboard was sent.
const (
	TagKnowledge = "KNOWLEDGE_GAIN"
	TagProblem   = "PROBLEM_SOL"
	TagMeme      = "MEME_EXPL"
	TagSettings  = "SETTINGS"
	TagBack      = "BACK"

	TagAlgo      = "ALGO_TASK"
	TagML        = "ML_TASK"
	TagInterview = "INTERVIEW_PREP"
	TagTest      = "TEST_TASK"
	TagRoadmap   = "ROADMAP"
	TagPsycho    = "PSYCHO_HELP"

	TagCodeExplain  = "CODE_EXPL"
	TagCodeBug      = "FIND_BUG"
	TagCodeRefactor = "REFACTOR"
	TagCodeReview   = "REVIEW"
	TagCodeWrite    = "CODE_WRITING"
	TagInstruct     = "PROBLEM_HELP"
	TagEDA          = "EDA"

	TagMemeImage    = "MEME_IMAGE"
	TagMemeReaction = "MEME_REACTION"

	TagLevel      = "PREP_LEVEL"
	TagDifficulty = "DIFFICULTY"
)

// Level and difficulty tags reuse the enum values directly.
const (
	TagLevelIntern = string(LevelIntern)
	TagLevelJunior = string(LevelJunior)
	TagLevelMiddle = string(LevelMiddle)
	TagLevelSenior = string(LevelSenior)

	TagDifficultyEasy   = string(DifficultyEasy)
	TagDifficultyMedium = string(DifficultyMedium)
	TagDifficultyHard   = string(DifficultyHard)
)

var backRow = []Button{{Label: "Назад", Tag: TagBack}}

// RootMenu is the entry point shown on /start and after every finished task.
func RootMenu() *Menu {
	return &Menu{
		Text: "Выберите задачу:",
		Rows: [][]Button{
			{{Label: "Прокачка знаний", Tag: TagKnowledge}},
			{{Label: "Помоги решить задачу", Tag: TagProblem}},
			{{Label: "Oбъясни IT мем", Tag: TagMeme}},
			{{Label: "Настройки", Tag: TagSettings}},
		},
	}
}

// KnowledgeMenu lists the coached-dialog exercises.
func KnowledgeMenu() *Menu {
	return &Menu{
		Text: "Что прокачиваем?",
		Rows: [][]Button{
			{{Label: "Задача на алгоритмы", Tag: TagAlgo}},
			{{Label: "Задача по ML", Tag: TagML}},
			{{Label: "Подготовка к собеседованию", Tag: TagInterview}},
			{{Label: "Тест по теме", Tag: TagTest}},
			{{Label: "План подготовки", Tag: TagRoadmap}},
			{{Label: "Психологическая поддержка", Tag: TagPsycho}},
			backRow,
		},
	}
}

// ProblemMenu lists the one-shot helpers.
func ProblemMenu() *Menu {
	return &Menu{
		Text: "Чем помочь?",
		Rows: [][]Button{
			{{Label: "Объясни код", Tag: TagCodeExplain}},
			{{Label: "Найди баг", Tag: TagCodeBug}},
			{{Label: "Сделай рефакторинг", Tag: TagCodeRefactor}},
			{{Label: "Проведи код-ревью", Tag: TagCodeReview}},
			{{Label: "Напиши код по описанию", Tag: TagCodeWrite}},
			{{Label: "Составь инструкцию", Tag: TagInstruct}},
			{{Label: "Проанализируй датасет", Tag: TagEDA}},
			backRow,
		},
	}
}

// MemeMenu offers the two meme-explanation flows.
func MemeMenu() *Menu {
	return &Menu{
		Text: "Как объясняем мем?",
		Rows: [][]Button{
			{{Label: "Пришлю картинку", Tag: TagMemeImage}},
			{{Label: "Опишу текстом", Tag: TagMemeReaction}},
			backRow,
		},
	}
}

// SettingsMenu shows the current preferences and the knobs to change them.
func SettingsMenu(s Settings) *Menu {
	level := "не задан"
	if s.Level != "" {
		level = string(s.Level)
	}
	difficulty := "не задана"
	if s.Difficulty != "" {
		difficulty = string(s.Difficulty)
	}
	return &Menu{
		Text: "Текущие настройки:\nУровень: " + level + "\nСложность: " + difficulty,
		Rows: [][]Button{
			{{Label: "Уровень подготовки", Tag: TagLevel}},
			{{Label: "Сложность заданий", Tag: TagDifficulty}},
			backRow,
		},
	}
}

// LevelMenu lets the user pick a preparation level.
func LevelMenu() *Menu {
	return &Menu{
		Text: "Выберите уровень подготовки:",
		Rows: [][]Button{
			{{Label: "Intern", Tag: TagLevelIntern}},
			{{Label: "Junior", Tag: TagLevelJunior}},
			{{Label: "Middle", Tag: TagLevelMiddle}},
			{{Label: "Senior", Tag: TagLevelSenior}},
			backRow,
		},
	}
}

// DifficultyMenu lets the user pick an exercise difficulty.
func DifficultyMenu() *Menu {
	return &Menu{
		Text: "Выберите сложность заданий:",
		Rows: [][]Button{
			{{Label: "Easy", Tag: TagDifficultyEasy}},
			{{Label: "Medium", Tag: TagDifficultyMedium}},
			{{Label: "Hard", Tag: TagDifficultyHard}},
			backRow,
		},
	}
}
