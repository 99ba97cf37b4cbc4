// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/strataportal/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// ErrorLogger logs handler failures with the request path and method.
// A nil ErrorLogger discards everything.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{logger: logger}
}

// Log logs an error with the given message and error.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.LogWithFields(r, msg, err)
}

// LogWithFields logs an error with additional fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	if e == nil || e.logger == nil {
		return
	}
	allFields := append([]zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}, fields...)
	e.logger.Error(msg, allFields...)
}

// Fail logs err and answers 500.
func (e *ErrorLogger) Fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	e.Log(r, msg, err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// Handler provides error page handlers.
type Handler struct{}

// NewHandler creates a new error Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// PageVM is the view model for the error pages.
type PageVM struct {
	viewdata.BaseVM
	Status  int
	Message string
}

func render(w http.ResponseWriter, r *http.Request, status int, name, title, msg string) {
	vm := PageVM{BaseVM: viewdata.NewBaseVM(r, title, "/dashboard"), Status: status, Message: msg}
	w.WriteHeader(status)
	templates.Render(w, r, name, vm)
}

// Forbidden renders the 403 forbidden page.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusForbidden, "errors/forbidden", "Access Denied",
		"Your role does not allow this page.")
}

// Unauthorized renders the 401 unauthorized page.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusUnauthorized, "errors/unauthorized", "Unauthorized",
		"Please sign in to continue.")
}

// NotFound renders the 404 not found page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusNotFound, "errors/not_found", "Not Found",
		"The page or record you asked for does not exist.")
}

// InternalError renders the 500 internal server error page.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusInternalServerError, "errors/internal", "Server Error",
		"Something went wrong. Please try again.")
}
