package impl

import (
	"CrewChat/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *MessageRepositoryImpl {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Message{}))

	return NewMessageRepository(db)
}

func appendMessage(t *testing.T, repo *MessageRepositoryImpl, channelID, content string) *models.Message {
	t.Helper()

	message := &models.Message{
		ChannelID:  channelID,
		SenderID:   "u1",
		SenderName: "Alice",
		Content:    content,
		Type:       models.MessageTypeText,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, repo.Append(context.Background(), message))
	return message
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	repo := newTestRepository(t)

	first := appendMessage(t, repo, "general", "one")
	second := appendMessage(t, repo, "general", "two")

	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)
}

func TestRecentReturnsChronologicalOrder(t *testing.T) {
	repo := newTestRepository(t)

	appendMessage(t, repo, "general", "one")
	appendMessage(t, repo, "general", "two")
	appendMessage(t, repo, "general", "three")

	messages, err := repo.Recent(context.Background(), "general", 50)
	assert.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "two", messages[1].Content)
	assert.Equal(t, "three", messages[2].Content)
}

func TestRecentKeepsOnlyLatestN(t *testing.T) {
	repo := newTestRepository(t)

	appendMessage(t, repo, "general", "one")
	appendMessage(t, repo, "general", "two")
	appendMessage(t, repo, "general", "three")

	messages, err := repo.Recent(context.Background(), "general", 2)
	assert.NoError(t, err)
	require.Len(t, messages, 2)
	// Обрезаются самые старые, порядок остается хронологическим
	assert.Equal(t, "two", messages[0].Content)
	assert.Equal(t, "three", messages[1].Content)
}

func TestRecentIsScopedToChannel(t *testing.T) {
	repo := newTestRepository(t)

	appendMessage(t, repo, "general", "general message")
	appendMessage(t, repo, "random", "random message")

	messages, err := repo.Recent(context.Background(), "general", 50)
	assert.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "general message", messages[0].Content)
}

func TestRecentEmptyChannel(t *testing.T) {
	repo := newTestRepository(t)

	messages, err := repo.Recent(context.Background(), "empty", 50)
	assert.NoError(t, err)
	// Не nil: пустая история должна сериализоваться как [], а не null
	require.NotNil(t, messages)
	assert.Empty(t, messages)
}
