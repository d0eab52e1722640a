package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaTypeFromMime(t *testing.T) {
	cases := map[string]MediaType{
		"image/png":  MediaImage,
		"IMAGE/JPEG": MediaImage,
		"image/gif":  MediaGIF,
		"video/mp4":  MediaVideo,
	}
	for mime, want := range cases {
		got, ok := MediaTypeFromMime(mime)
		assert.True(t, ok, mime)
		assert.Equal(t, want, got, mime)
	}

	_, ok := MediaTypeFromMime("application/pdf")
	assert.False(t, ok)
}

func TestMediaTypeCheckSize(t *testing.T) {
	assert.NoError(t, MediaImage.CheckSize(MaxImageSize))
	assert.Error(t, MediaImage.CheckSize(MaxImageSize+1))
	assert.NoError(t, MediaVideo.CheckSize(100<<20))
	assert.Error(t, MediaVideo.CheckSize(MaxVideoSize+1))
	assert.Error(t, MediaImage.CheckSize(0))
}
