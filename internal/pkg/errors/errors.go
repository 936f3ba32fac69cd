// Package errors carries HTTP-aware application errors rendered as RFC 7807 problem documents.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/strogmv/notifyevents/internal/pkg/i18n"
	"github.com/strogmv/notifyevents/internal/pkg/logger"
)

// Error is an application error with an HTTP status and an optional stable code.
type Error struct {
	Status int
	Title  string
	Detail string
	Code   string
	cause  error
}

func New(status int, title, detail string) *Error {
	return &Error{Status: status, Title: title, Detail: detail}
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Title, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCode returns a copy of e tagged with code.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// Wrap returns a copy of e that unwraps to cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

func NotFound(code, detail string) *Error {
	return New(http.StatusNotFound, "Not Found", detail).WithCode(code)
}

func Forbidden(code, detail string) *Error {
	return New(http.StatusForbidden, "Forbidden", detail).WithCode(code)
}

func BadRequest(code, detail string) *Error {
	return New(http.StatusBadRequest, "Bad Request", detail).WithCode(code)
}

func Processing(code string, cause error) *Error {
	detail := "processing failure"
	if cause != nil {
		detail = cause.Error()
	}
	return New(http.StatusInternalServerError, "Processing Failure", detail).WithCode(code).Wrap(cause)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given stable code.
func Is(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// StatusOf returns the HTTP status err maps to.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Problem is the wire form of an Error.
type Problem struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Status  int    `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ProblemFor builds the problem document for err in the caller's language.
func ProblemFor(err error, lang string) Problem {
	e, ok := As(err)
	if !ok {
		return Problem{
			Type:   "about:blank",
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
			Detail: "unexpected error",
		}
	}
	p := Problem{
		Type:   "about:blank",
		Title:  e.Title,
		Status: e.Status,
		Detail: e.Detail,
		Code:   e.Code,
	}
	if e.Status >= http.StatusInternalServerError && e.cause != nil {
		p.Detail = ""
	}
	if e.Code != "" {
		p.Message = i18n.Message(lang, e.Code)
	}
	return p
}

// WriteError renders err as application/problem+json.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	p := ProblemFor(err, i18n.Lang(r.Header.Get("Accept-Language")))
	if _, ok := As(err); !ok {
		logger.From(r.Context()).Error("unhandled error", "error", err, "path", r.URL.Path)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
