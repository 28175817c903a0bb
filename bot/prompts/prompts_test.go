package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeModes(t *testing.T) {
	msgs, err := Code("print(1)", CodeExplain)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "analyse, explain and interpret")
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "print(1)", msgs[1].Content)

	msgs, err = Code("x = y", CodeFindBug)
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, "If there are no bugs")

	_, err = Code("x", CodeMode("bogus"))
	require.Error(t, err)
}

func TestTaskModes(t *testing.T) {
	msgs, err := Task("parse logs", TaskInstruct)
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, "actionable instructions")

	msgs, err = Task("parse logs", TaskImplement)
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, "write code based on this description")

	_, err = Task("x", TaskMode("bogus"))
	require.Error(t, err)
}

func TestAlgoTaskInterpolatesParameters(t *testing.T) {
	transcript := []Message{User("давай"), Assistant("вот задача")}
	msgs := AlgoTask("JUNIOR", "EASY", "сортировки", transcript)

	require.Len(t, msgs, 3)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "JUNIOR")
	assert.Contains(t, msgs[0].Content, "EASY")
	assert.Contains(t, msgs[0].Content, "сортировки")
	assert.Equal(t, transcript[0], msgs[1])
	assert.Equal(t, transcript[1], msgs[2])
}

func TestDialogBuildersPrependSystemOnly(t *testing.T) {
	transcript := []Message{User("привет")}
	for name, msgs := range map[string][]Message{
		"ml":        MLTask("MIDDLE", "HARD", "градиентный бустинг", transcript),
		"interview": Interview("SENIOR", "HARD", "метрики", transcript),
		"quiz":      Quiz("INTERN", "EASY", "python", transcript),
		"roadmap":   Roadmap("JUNIOR", "MEDIUM", "SQL", transcript),
		"psycho":    Psycho(transcript),
		"meme":      MemeReaction(transcript),
	} {
		require.Len(t, msgs, 2, name)
		assert.Equal(t, RoleSystem, msgs[0].Role, name)
		assert.Equal(t, RoleUser, msgs[1].Role, name)
	}
}

func TestMemeImageCarriesAttachment(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff}
	msgs := MemeImage(image)

	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, image, msgs[0].Image)
	assert.NotEmpty(t, msgs[0].Content)
}

func TestEDA(t *testing.T) {
	msgs := EDA("id,name\n1,a")

	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "exploratory data analysis")
	assert.Equal(t, "id,name\n1,a", msgs[1].Content)
}
