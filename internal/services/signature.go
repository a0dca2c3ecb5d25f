package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"strings"

	"github.com/google/uuid"
)

var (
	ErrSignatureFormat   = errors.New("signature must be a base64 PNG or JPEG data URL")
	ErrSignatureTooLarge = errors.New("signature image is too large")
	ErrSignatureImage    = errors.New("signature is not a readable image")
)

// Signature is a decoded signature image ready to be stored
type Signature struct {
	Ref         string
	ContentType string
	Data        []byte
}

// DecodeSignature parses a data URL of the form data:image/png;base64,<payload>.
// The decoded image may not exceed maxBytes.
func DecodeSignature(dataURL string, maxBytes int) (*Signature, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(dataURL), ",")
	if !ok {
		return nil, ErrSignatureFormat
	}

	var contentType, ext string
	switch strings.ToLower(header) {
	case "data:image/png;base64":
		contentType, ext = "image/png", "png"
	case "data:image/jpeg;base64", "data:image/jpg;base64":
		contentType, ext = "image/jpeg", "jpg"
	default:
		return nil, ErrSignatureFormat
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return nil, ErrSignatureTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureFormat, err)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, ErrSignatureTooLarge
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureImage, err)
	}

	return &Signature{
		Ref:         fmt.Sprintf("signatures/%s.%s", uuid.New(), ext),
		ContentType: contentType,
		Data:        data,
	}, nil
}
