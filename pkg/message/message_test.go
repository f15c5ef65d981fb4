package message

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	before := time.Now()
	ev := New("¡Sonó el timbre!", "¡Timbre!", SourcePoll)

	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "¡Sonó el timbre!", ev.Text)
	assert.Equal(t, "¡Timbre!", ev.Title)
	assert.Equal(t, SourcePoll, ev.Source)
	assert.False(t, ev.CreatedAt.Before(before))

	other := New("x", "", SourceManual)
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestTitleOr(t *testing.T) {
	assert.Equal(t, "Doorbell", New("ding", "", SourceEdge).TitleOr("Doorbell"))
	assert.Equal(t, "Front door", New("ding", "Front door", SourceEdge).TitleOr("Doorbell"))
}
