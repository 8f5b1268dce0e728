// Package validator checks that an upload is a single PNG or JPEG image
// wide enough to produce every variant.
package validator

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

// MinWidth is the smallest accepted image width in pixels.
const MinWidth = 768

// Rejection messages are sent to clients verbatim and keep the wording
// existing API consumers match on.
var (
	ErrNotMultipart    = errors.New("Request is not multipart")
	ErrNoFile          = errors.New("no file found please add file and the name of the form parameter")
	ErrTooManyFields   = errors.New("number of parameters or files found is more than one")
	ErrUnsupportedType = errors.New("file is not an image with type of png or jpg")
	ErrTooNarrow       = fmt.Errorf("The image width is less than %dpx", MinWidth)
	ErrTooLarge        = errors.New("file is too large")
)

var accepted = []string{"image/jpeg", "image/png"}

// Form returns the only file of a parsed multipart form.
// Plain values count as fields too, and a field carrying several files
// counts once per file.
func Form(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, ErrNoFile
	}

	fields := 0
	for _, values := range form.Value {
		fields += len(values)
	}

	var header *multipart.FileHeader
	for _, files := range form.File {
		fields += len(files)
		if len(files) > 0 {
			header = files[0]
		}
	}

	switch {
	case fields == 0:
		return nil, ErrNoFile
	case fields > 1:
		return nil, ErrTooManyFields
	case header == nil:
		return nil, ErrNoFile
	}

	return header, nil
}

// Image sniffs the content type from the magic bytes and checks the decoded width.
// It returns the sniffed MIME type.
func Image(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoFile
	}

	mime := mimetype.Detect(data)
	if !isAccepted(mime) {
		return "", ErrUnsupportedType
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrUnsupportedType
	}

	if cfg.Width < MinWidth {
		return "", ErrTooNarrow
	}

	return mime.String(), nil
}

func isAccepted(mime *mimetype.MIME) bool {
	for _, a := range accepted {
		if mime.Is(a) {
			return true
		}
	}

	return false
}

// IsRejection reports whether err is one of the client-caused validation errors.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrNotMultipart, ErrNoFile, ErrTooManyFields, ErrUnsupportedType, ErrTooNarrow, ErrTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
