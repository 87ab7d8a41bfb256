package errresponse

import (
	"net/http"

	"github.com/SergeyParamoshkin/feeds/internal/logger"
	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/go-chi/render"
)

// ErrResponse renderer type for handling all sorts of errors. The wire
// format is the same envelope successful responses use, without data.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	Message string `json:"message"` // user-level status message
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)

	return nil
}

// FromError maps a classified error to its response. Unclassified errors
// become a generic 500.
func FromError(err error) *ErrResponse {
	resp := &ErrResponse{Err: err, Message: model.Message(err)}

	switch model.KindOf(err) {
	case model.KindInvalidArgument:
		resp.HTTPStatusCode = http.StatusBadRequest
	case model.KindNotFound:
		resp.HTTPStatusCode = http.StatusNotFound
	case model.KindUnauthorized:
		resp.HTTPStatusCode = http.StatusUnauthorized
	case model.KindForbidden:
		resp.HTTPStatusCode = http.StatusForbidden
	case model.KindConflict:
		resp.HTTPStatusCode = http.StatusConflict
	default:
		resp.HTTPStatusCode = http.StatusInternalServerError
	}

	return resp
}

// ErrInvalidRequest is used for payloads that failed to decode or bind.
func ErrInvalidRequest(err error) *ErrResponse {
	if model.KindOf(err) == model.KindInvalidArgument {
		return FromError(err)
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		Message:        "Invalid request.",
	}
}

func ErrRender(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		Message:        "Error rendering response.",
	}
}

// Render writes err to the client. Server side failures are logged with
// their cause, which never reaches the response body.
func Render(w http.ResponseWriter, r *http.Request, err error) {
	write(w, r, FromError(err))
}

// RenderInvalid is Render for request binding failures.
func RenderInvalid(w http.ResponseWriter, r *http.Request, err error) {
	write(w, r, ErrInvalidRequest(err))
}

func write(w http.ResponseWriter, r *http.Request, resp *ErrResponse) {
	log := logger.FromContext(r.Context())
	if resp.HTTPStatusCode >= http.StatusInternalServerError {
		log.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", resp.Err)
	} else {
		log.Debugw("request rejected", "method", r.Method, "path", r.URL.Path, "status", resp.HTTPStatusCode, "error", resp.Err)
	}

	if err := render.Render(w, r, resp); err != nil {
		log.Errorw("rendering error response", "error", err)
	}
}
