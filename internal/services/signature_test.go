package services

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSignature_PNG(t *testing.T) {
	sig, err := DecodeSignature(pngDataURL(t), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", sig.ContentType)
	assert.True(t, strings.HasPrefix(sig.Ref, "signatures/"))
	assert.True(t, strings.HasSuffix(sig.Ref, ".png"))
	assert.NotEmpty(t, sig.Data)
}

func TestDecodeSignature_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))
	url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	sig, err := DecodeSignature(url, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", sig.ContentType)
	assert.True(t, strings.HasSuffix(sig.Ref, ".jpg"))
}

func TestDecodeSignature_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int
		wantErr error
	}{
		{"no comma", "data:image/png;base64", 1024, ErrSignatureFormat},
		{"wrong type", "data:image/gif;base64,R0lGODlh", 1024, ErrSignatureFormat},
		{"not base64", "data:image/png;base64,***", 1024, ErrSignatureFormat},
		{"not an image", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello")), 1024, ErrSignatureImage},
		{"too large", "data:image/png;base64," + base64.StdEncoding.EncodeToString(make([]byte, 4096)), 1024, ErrSignatureTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSignature(tt.input, tt.max)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
