package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsprep/prepbot/bot/conversation"
	"github.com/dsprep/prepbot/core/config"
)

func TestInProgress(t *testing.T) {
	sessions := conversation.NewMemoryStore()
	app := NewApp(&config.Config{}, nil, nil, sessions, nil)

	assert.False(t, app.InProgress(7), "unknown user is not in progress")

	sessions.Put(7, conversation.NewSession())
	assert.False(t, app.InProgress(7), "root session is not in progress")

	sess := conversation.NewSession()
	sess.State = conversation.StateDialogAlgo
	sessions.Put(7, sess)
	assert.True(t, app.InProgress(7))
}

func TestMenuMarkupPreservesRowsAndTags(t *testing.T) {
	markup := menuMarkup(conversation.RootMenu())

	require.Len(t, markup.InlineKeyboard, 4)
	first := markup.InlineKeyboard[0][0]
	assert.Equal(t, "Прокачка знаний", first.Text)
	assert.Contains(t, first.Unique, conversation.TagKnowledge)
}

func TestCommandEventsMapping(t *testing.T) {
	assert.Equal(t, conversation.CommandStart, commandEvents["/start"])
	assert.Equal(t, conversation.CommandCancel, commandEvents["/cancel"])
	assert.Equal(t, conversation.CommandFinish, commandEvents["/finish_dialog"])
}

func TestMaxMessageLenDefaults(t *testing.T) {
	app := NewApp(&config.Config{}, nil, nil, conversation.NewMemoryStore(), nil)
	assert.Equal(t, 4096, app.maxMessageLen())

	cfg := &config.Config{}
	cfg.Chat.MaxMessageLen = 1000
	app = NewApp(cfg, nil, nil, conversation.NewMemoryStore(), nil)
	assert.Equal(t, 1000, app.maxMessageLen())
}
