package envelope

import (
	"net/http"

	"github.com/go-chi/render"
)

// Response is the body of every successful API response.
type Response struct {
	HTTPStatusCode int `json:"-"`

	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func New(message string, data interface{}) *Response {
	return &Response{HTTPStatusCode: http.StatusOK, Message: message, Data: data}
}

func Created(message string, data interface{}) *Response {
	return &Response{HTTPStatusCode: http.StatusCreated, Message: message, Data: data}
}

func (e *Response) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)

	return nil
}
