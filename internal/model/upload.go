package model

// Upload is the image received from the client. It lives only for the
// duration of a single request.
type Upload struct {
	Filename     string `json:"filename"`
	DeclaredMIME string `json:"declared_mime"` // content type sent by the client
	SniffedMIME  string `json:"sniffed_mime"`  // content type detected from the bytes
	Data         []byte `json:"-"`
}

// Result is returned to the client after a successful upload.
type Result struct {
	FileName string `json:"fileName"`
	HTMLCode string `json:"htmlCode"`
}
