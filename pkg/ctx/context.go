// Package ctx provides the request context coursemart handlers are written
// against.
//
// Instead of (http.ResponseWriter, *http.Request) a handler receives a
// single *Context:
//
//	func Show(c *ctx.Context) {
//	    course, err := svc.GetCourse(c.Context(), c.Param("courseId"))
//	    if err != nil {
//	        c.Fail(err)
//	        return
//	    }
//	    c.JSON(http.StatusOK, map[string]any{"course": course})
//	}
//
//	router.Get("/course/{courseId}", "course.show", ctx.Wrap(Show))
package ctx

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/coursemart/pkg/bind"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
	"github.com/shashiranjanraj/coursemart/pkg/response"
	"github.com/shashiranjanraj/coursemart/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc to http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// ─── Context ──────────────────────────────────────────────────────────────────

type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	mu     sync.RWMutex
	store  map[string]any
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{store: make(map[string]any)} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	for k := range c.store {
		delete(c.store, k)
	}
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// Cookie returns the value of a named cookie.
func (c *Context) Cookie(name string) (string, error) {
	cookie, err := c.R.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// BearerToken returns the token from "Authorization: Bearer ..." or "".
func (c *Context) BearerToken() string {
	h := c.R.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// ClientIP returns the client address, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	ip := c.R.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Context returns the request context. Pass it to every store and HTTP call
// so a client disconnect cancels outstanding work.
func (c *Context) Context() context.Context { return c.R.Context() }

// ─── Per-request store ────────────────────────────────────────────────────────

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes and validates the JSON body into dest. On failure the
// error response is already written and false is returned.
//
//	var input SignupInput
//	if !c.BindJSON(&input) {
//	    return
//	}
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	return c.bound(errs, err)
}

// DecodeJSON decodes the body into dest without validating it, for inputs
// whose service reports its own validation errors.
func (c *Context) DecodeJSON(dest any) bool {
	_, err := bind.JSON(c.R, dest)
	return c.bound(nil, err)
}

// BindForm is BindJSON for urlencoded and multipart bodies (`form` tags).
func (c *Context) BindForm(dest any) bool {
	errs, err := bind.Form(c.R, dest)
	return c.bound(errs, err)
}

// FormFiles returns the uploaded files under field in client order.
func (c *Context) FormFiles(field string) ([]*multipart.FileHeader, bool) {
	files, err := bind.Files(c.R, field)
	if err != nil {
		c.bound(nil, err)
		return nil, false
	}
	return files, true
}

func (c *Context) bound(errs map[string]string, err error) bool {
	switch {
	case errors.Is(err, bind.ErrBodyTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorBody{
			Status: http.StatusRequestEntityTooLarge, Error: "ValidationError", Message: err.Error(),
		})
		return false
	case err != nil:
		c.JSON(http.StatusBadRequest, ErrorBody{
			Status: http.StatusBadRequest, Error: "ValidationError", Message: err.Error(),
		})
		return false
	case validate.HasErrors(errs):
		c.JSON(http.StatusBadRequest, ErrorBody{
			Status: http.StatusBadRequest, Error: "ValidationError", Message: "Validation failed", Errors: errs,
		})
		return false
	}
	return true
}

// ─── Responses ────────────────────────────────────────────────────────────────

// ErrorBody is the shape of every error response.
type ErrorBody = response.ErrorBody

// Classified is implemented by errors that know how they map onto HTTP.
type Classified interface {
	error
	StatusCode() int
	KindName() string
	FieldErrors() map[string]string
	PublicMessage() string
}

// Fail converts err into an error response. Errors implementing Classified
// keep their status and kind; anything else is logged and reported as a
// generic 500 so internals never leak to the client.
func (c *Context) Fail(err error) {
	var ce Classified
	if errors.As(err, &ce) {
		status := ce.StatusCode()
		if status >= http.StatusInternalServerError {
			logger.WithCtx(c.Context()).Error("request failed", "error", err, "path", c.R.URL.Path)
		}
		c.JSON(status, ErrorBody{
			Status:  status,
			Error:   ce.KindName(),
			Message: ce.PublicMessage(),
			Errors:  ce.FieldErrors(),
		})
		return
	}

	logger.WithCtx(c.Context()).Error("request failed", "error", err, "path", c.R.URL.Path)
	c.JSON(http.StatusInternalServerError, ErrorBody{
		Status:  http.StatusInternalServerError,
		Error:   "InternalError",
		Message: "Internal server error",
	})
}

// Error sends an error response with an explicit status and kind.
func (c *Context) Error(code int, kind, message string) {
	c.JSON(code, ErrorBody{Status: code, Error: kind, Message: message})
}

// JSON writes v with the given status code.
func (c *Context) JSON(code int, v any) {
	c.status = code
	response.JSON(c.W, code, v)
}

// String writes a plain-text response.
func (c *Context) String(code int, format string, args ...any) {
	c.W.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.W.WriteHeader(code)
	c.status = code
	fmt.Fprintf(c.W, format, args...)
}

// SetCookie sets an HttpOnly, SameSite=Strict cookie valid for ttl.
func (c *Context) SetCookie(name, value string, ttl time.Duration, secure bool) {
	http.SetCookie(c.W, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires a cookie previously set with SetCookie.
func (c *Context) ClearCookie(name string, secure bool) {
	http.SetCookie(c.W, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
