package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelfable/photobook-be/internal/api/storage"
)

func TestJobCursor_RoundTrip(t *testing.T) {
	original := &storage.JobCursor{
		CreatedAt: time.Date(2024, 6, 1, 12, 30, 45, 123456789, time.UTC),
		JobID:     "550e8400-e29b-41d4-a716-446655440000",
	}

	encoded, err := EncodeJobCursor(original)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, original.JobID, decoded.JobID)
}

func TestDecodeJobCursor(t *testing.T) {
	t.Run("empty cursor returns nil", func(t *testing.T) {
		cursor, err := DecodeJobCursor("")
		require.NoError(t, err)
		assert.Nil(t, cursor)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := DecodeJobCursor("not-valid-base64!!!")
		require.Error(t, err)
	})

	t.Run("missing separator", func(t *testing.T) {
		_, err := DecodeJobCursor("bm9zZXBhcmF0b3I=") // "noseparator"
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cursor format")
	})

	t.Run("non-numeric timestamp", func(t *testing.T) {
		_, err := DecodeJobCursor("YWJjfGpvYi0x") // "abc|job-1"
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid createdAt")
	})

	t.Run("trailing garbage in timestamp", func(t *testing.T) {
		// Must reject, not silently decode the leading digits.
		cursor := base64.StdEncoding.EncodeToString([]byte("12abc|job-1"))
		_, err := DecodeJobCursor(cursor)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid createdAt")
	})
}
