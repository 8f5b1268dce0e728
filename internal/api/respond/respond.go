package respond

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message"`
}

// ErrorPayload carries the raw error of a server-side failure.
type ErrorPayload struct {
	Error string `json:"error"`
}

// JSON sends a JSON response with the specified HTTP status code and data.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK response wrapping data and message in an Envelope.
func OK(c *ginext.Context, data interface{}, message string) {
	JSON(c, http.StatusOK, Envelope{StatusCode: http.StatusOK, Data: data, Message: message})
}

// Fail sends an error response whose message is err's text, verbatim.
func Fail(c *ginext.Context, status int, err error) {
	JSON(c, status, Envelope{StatusCode: status, Message: err.Error()})
}

// Internal sends a 500 response with a generic message and the raw error as payload.
func Internal(c *ginext.Context, err error) {
	JSON(c, http.StatusInternalServerError, Envelope{
		StatusCode: http.StatusInternalServerError,
		Data:       ErrorPayload{Error: err.Error()},
		Message:    "Internal server error",
	})
}
