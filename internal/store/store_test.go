package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicbook/internal/model"
)

func TestComicStore_SaveGet(t *testing.T) {
	s := New(time.Hour)
	panels := []model.Panel{{VisualDescription: "a", CaptionText: "b", ImageReference: "u"}}

	saved := s.Save("story", panels)
	_, err := uuid.Parse(saved.ID)
	require.NoError(t, err)

	panels[0].CaptionText = "mutated"
	got, err := s.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Panels[0].CaptionText)

	got.Panels[0].CaptionText = "mutated again"
	again, err := s.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", again.Panels[0].CaptionText)
	assert.Equal(t, 1, s.Len())
}

func TestComicStore_NotFound(t *testing.T) {
	_, err := New(0).Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComicStore_Expires(t *testing.T) {
	s := New(20 * time.Millisecond)
	c := s.Save("story", nil)
	time.Sleep(40 * time.Millisecond)
	_, err := s.Get(c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
