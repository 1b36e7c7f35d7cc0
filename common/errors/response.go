package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type statusCoded struct {
	cause error
	code  int
}

func (e *statusCoded) Error() string { return e.cause.Error() }
func (e *statusCoded) Unwrap() error { return e.cause }

// WithStatusCode attaches the HTTP status Response should use for err.
func WithStatusCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &statusCoded{cause: err, code: code}
}

// Response writes err as a JSON error body. The status comes from the
// nearest WithStatusCode in the chain, defaulting to 500.
func Response(ctx *gin.Context, err error) {
	code := http.StatusInternalServerError
	var sc *statusCoded
	if As(err, &sc) {
		code = sc.code
	}
	ctx.JSON(code, gin.H{"error": err.Error()})
}
