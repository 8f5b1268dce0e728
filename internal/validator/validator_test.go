package validator

import (
	"errors"
	"mime/multipart"
	"testing"

	"github.com/aliskhannn/image-optimizer/internal/testutil"
)

func TestForm(t *testing.T) {
	file := &multipart.FileHeader{Filename: "photo.png"}

	tests := []struct {
		name    string
		form    *multipart.Form
		wantErr error
	}{
		{name: "nil form", form: nil, wantErr: ErrNoFile},
		{name: "empty form", form: &multipart.Form{}, wantErr: ErrNoFile},
		{
			name:    "single value field",
			form:    &multipart.Form{Value: map[string][]string{"image": {"abc"}}},
			wantErr: ErrNoFile,
		},
		{
			name: "two file fields",
			form: &multipart.Form{File: map[string][]*multipart.FileHeader{
				"a": {file},
				"b": {file},
			}},
			wantErr: ErrTooManyFields,
		},
		{
			name: "two files under one field",
			form: &multipart.Form{File: map[string][]*multipart.FileHeader{
				"image": {file, file},
			}},
			wantErr: ErrTooManyFields,
		},
		{
			name: "file plus value",
			form: &multipart.Form{
				Value: map[string][]string{"alt": {"x"}},
				File:  map[string][]*multipart.FileHeader{"image": {file}},
			},
			wantErr: ErrTooManyFields,
		},
		{
			name: "exactly one file",
			form: &multipart.Form{File: map[string][]*multipart.FileHeader{"image": {file}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Form(tt.form)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Form() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != file {
				t.Errorf("Form() returned %v, want the only file header", got)
			}
		})
	}
}

func TestImage_Type(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantMIME string
		wantErr  error
	}{
		{name: "png", data: testutil.PNG(t, 800, 600), wantMIME: "image/png"},
		{name: "jpeg", data: testutil.JPEG(t, 800, 600), wantMIME: "image/jpeg"},
		{name: "gif", data: testutil.GIF(t, 800, 600), wantErr: ErrUnsupportedType},
		{name: "webp", data: testutil.WebP(1000, 800), wantErr: ErrUnsupportedType},
		{name: "text", data: []byte("definitely not an image"), wantErr: ErrUnsupportedType},
		{name: "empty", data: nil, wantErr: ErrNoFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := Image(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Image() error = %v, want %v", err, tt.wantErr)
			}
			if mime != tt.wantMIME {
				t.Errorf("Image() mime = %q, want %q", mime, tt.wantMIME)
			}
		})
	}
}

func TestImage_WidthBoundary(t *testing.T) {
	if _, err := Image(testutil.PNG(t, 767, 400)); !errors.Is(err, ErrTooNarrow) {
		t.Errorf("width 767: error = %v, want %v", err, ErrTooNarrow)
	}

	if _, err := Image(testutil.PNG(t, 768, 400)); err != nil {
		t.Errorf("width 768: unexpected error %v", err)
	}

	if _, err := Image(testutil.JPEG(t, 767, 900)); !errors.Is(err, ErrTooNarrow) {
		t.Errorf("jpeg width 767: error = %v, want %v", err, ErrTooNarrow)
	}
}

func TestImage_TruncatedPNG(t *testing.T) {
	data := testutil.PNG(t, 800, 600)[:12]

	if _, err := Image(data); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("error = %v, want %v", err, ErrUnsupportedType)
	}
}

func TestIsRejection(t *testing.T) {
	if !IsRejection(ErrTooManyFields) {
		t.Error("ErrTooManyFields should be a rejection")
	}
	if IsRejection(errors.New("disk full")) {
		t.Error("arbitrary error should not be a rejection")
	}
}
