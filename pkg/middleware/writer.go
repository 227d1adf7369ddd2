package middleware

import (
	"bytes"
	"net/http"
)

// statusWriter records the status code and size of a response. When capture
// is set it also keeps a copy of the body.
type statusWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	wrote   bool
	capture *bytes.Buffer
}

func wrapWriter(w http.ResponseWriter) *statusWriter {
	if sw, ok := w.(*statusWriter); ok {
		return sw
	}
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wrote = true
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	if w.capture != nil {
		w.capture.Write(b[:n])
	}
	return n, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
