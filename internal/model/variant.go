package model

import (
	"fmt"
	"strconv"
)

// Format is the target encoding of a variant.
type Format string

const (
	FormatWebP Format = "webp"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Ext returns the file extension used for entries of this format.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}

	return string(f)
}

// MIME returns the media type of the format.
func (f Format) MIME() string {
	return "image/" + string(f)
}

// Variant is a single rendition: a format and a target width.
// Width 0 means the original resolution.
type Variant struct {
	Format Format `json:"format"`
	Width  int    `json:"width"`
}

// Label returns the width part of an entry name ("480", "767" or "full").
func (v Variant) Label() string {
	if v.Width == 0 {
		return "full"
	}

	return strconv.Itoa(v.Width)
}

// EntryName returns the archive entry name of the variant for the given basename.
func (v Variant) EntryName(basename string) string {
	return fmt.Sprintf("%s-%s.%s", basename, v.Label(), v.Format.Ext())
}

// Plan is the ordered list of variants produced for one upload.
type Plan []Variant

// EncodedVariant holds the encoded bytes of a variant and its archive entry name.
type EncodedVariant struct {
	Variant
	Name string `json:"name"`
	Data []byte `json:"-"`
}
