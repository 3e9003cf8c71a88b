package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CONTENT TYPE TESTS
// =============================================================================

func TestContentTypeForExt(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".parquet", ParquetContentType},
		{".PARQUET", ParquetContentType},
		{".jpg", "image/jpeg"},
		{".JPEG", "image/jpeg"},
		{".png", "image/png"},
		{".gif", "image/gif"},
		{".webp", "image/webp"},
		{".unknown", BinaryContentType},
		{"", BinaryContentType},
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContentTypeForExt(tt.extension))
		})
	}
}

func TestContentTypeForKey(t *testing.T) {
	assert.Equal(t, ParquetContentType, ContentTypeForKey("archive/user_1/pageviews_archive_1700000000000.parquet"))
	assert.Equal(t, "image/png", ContentTypeForKey("avatars/user_1/abc.png"))
}

// =============================================================================
// UPLOAD POLICY TESTS
// =============================================================================

func TestArchivePolicy_Check(t *testing.T) {
	tests := []struct {
		name        string
		obj         Object
		expectedErr error
	}{
		{
			name: "parquet allowed",
			obj:  Object{Key: "a.parquet", Body: []byte("PAR1"), ContentType: ParquetContentType},
		},
		{
			name: "octet-stream fallback allowed",
			obj:  Object{Key: "a.bin", Body: []byte{1}, ContentType: BinaryContentType},
		},
		{
			name: "content type parameters ignored",
			obj:  Object{Key: "a.parquet", Body: []byte{1}, ContentType: "Application/Vnd.Apache.Parquet; charset=binary"},
		},
		{
			name:        "json rejected",
			obj:         Object{Key: "a.json", Body: []byte("{}"), ContentType: "application/json"},
			expectedErr: ErrContentTypeNotAllowed,
		},
		{
			name:        "empty rejected",
			obj:         Object{Key: "a.parquet", ContentType: ParquetContentType},
			expectedErr: ErrEmptyObject,
		},
		{
			name:        "over 50MB rejected",
			obj:         Object{Key: "a.parquet", Body: bytes.Repeat([]byte{0}, 50<<20+1), ContentType: ParquetContentType},
			expectedErr: ErrObjectTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ArchivePolicy.Check(tt.obj)
			if tt.expectedErr == nil {
				require.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
		})
	}
}

func TestAvatarPolicy_Check(t *testing.T) {
	assert.NoError(t, AvatarPolicy.Check(Object{Body: []byte{1}, ContentType: "image/png"}))
	assert.ErrorIs(t, AvatarPolicy.Check(Object{Body: []byte{1}, ContentType: ParquetContentType}), ErrContentTypeNotAllowed)
	assert.ErrorIs(t, AvatarPolicy.Check(Object{Body: bytes.Repeat([]byte{1}, 2<<20+1), ContentType: "image/png"}), ErrObjectTooLarge)
}

func TestKeyFromURL(t *testing.T) {
	key, ok := keyFromURL("https://cdn.example.com/", "https://cdn.example.com/avatars/user_1/a.png")
	assert.True(t, ok)
	assert.Equal(t, "avatars/user_1/a.png", key)

	_, ok = keyFromURL("https://cdn.example.com", "https://lh3.googleusercontent.com/a.png")
	assert.False(t, ok)

	_, ok = keyFromURL("", "https://cdn.example.com/a.png")
	assert.False(t, ok)
}
