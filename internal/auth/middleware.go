package auth

import (
	"net/http"

	"github.com/SergeyParamoshkin/feeds/internal/errresponse"
	"github.com/SergeyParamoshkin/feeds/internal/model"
)

// Authenticator rejects requests without a valid bearer token before they
// reach any handler, and stores the caller's Identity on the context.
func Authenticator(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				errresponse.Render(w, r, model.Unauthorized("unauthorized"))

				return
			}

			id, err := v.Verify(token)
			if err != nil {
				errresponse.Render(w, r, err)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
