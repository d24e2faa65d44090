// Package responsewriter records the status written by a handler and makes
// the recorder reachable from the request context.
package responsewriter

import (
	"bytes"
	"context"
	"errors"
	"net/http"
)

// Using an unexported type prevents key collisions from other packages.
type responseWriterKey string

// ResponseWriterKey is the context key for the recorder.
const ResponseWriterKey responseWriterKey = "response-writer"

var ErrNotFound = errors.New("response writer not found in context")

// Recorder wraps an http.ResponseWriter and remembers the status code.
//
// A buffered recorder holds back headers, status and body until Release is
// called, or drops them on Discard.
type Recorder struct {
	http.ResponseWriter

	status      int
	wroteHeader bool

	buffered bool
	header   http.Header
	body     bytes.Buffer
}

func NewRecorder(w http.ResponseWriter) *Recorder {
	return &Recorder{ResponseWriter: w}
}

// NewBufferedRecorder returns a recorder that writes nothing to w before
// Release.
func NewBufferedRecorder(w http.ResponseWriter) *Recorder {
	return &Recorder{
		ResponseWriter: w,
		buffered:       true,
		header:         make(http.Header),
	}
}

func (r *Recorder) Header() http.Header {
	if r.buffered {
		return r.header
	}
	return r.ResponseWriter.Header()
}

func (r *Recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	if r.buffered {
		return
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *Recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.status = http.StatusOK
		r.wroteHeader = true
	}
	if r.buffered {
		return r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

// Release sends the held response to the wrapped writer. Later writes go
// straight through. It does nothing for an unbuffered recorder.
func (r *Recorder) Release() error {
	if !r.buffered {
		return nil
	}
	r.buffered = false

	dst := r.ResponseWriter.Header()
	for k, v := range r.header {
		dst[k] = v
	}
	r.header = nil

	if !r.wroteHeader {
		return nil
	}
	r.ResponseWriter.WriteHeader(r.status)

	if r.body.Len() == 0 {
		return nil
	}
	_, err := r.ResponseWriter.Write(r.body.Bytes())
	r.body.Reset()

	return err
}

// Discard drops the held response so the caller can write another one to
// the wrapped writer.
func (r *Recorder) Discard() {
	if !r.buffered {
		return
	}
	r.header = make(http.Header)
	r.body.Reset()
	r.status = 0
	r.wroteHeader = false
}

// Status returns the written status code, http.StatusOK when the handler
// wrote nothing.
func (r *Recorder) Status() int {
	if !r.wroteHeader {
		return http.StatusOK
	}
	return r.status
}

// Unwrap lets http.ResponseController reach the wrapped writer.
func (r *Recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// ResponseWriterMiddleware is an http.Handler middleware that wraps the
// response writer into a Recorder and injects it into the context. An
// existing recorder is reused.
func ResponseWriterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := w.(*Recorder)
		if !ok {
			rec = NewRecorder(w)
		}
		ctx := context.WithValue(r.Context(), ResponseWriterKey, rec)
		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

// ResponseWriterFromContext is a helper function that retrieves the recorder
// from the context.
func ResponseWriterFromContext(ctx context.Context) (*Recorder, error) {
	rec, ok := ctx.Value(ResponseWriterKey).(*Recorder)
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}
