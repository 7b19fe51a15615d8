package main

import (
	"bufio"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
)

type StatusCode int

const (
	StatusOK               StatusCode = 200
	StatusBadRequest       StatusCode = 400
	StatusForbidden        StatusCode = 403
	StatusNotFound         StatusCode = 404
	StatusMethodNotAllowed StatusCode = 405
)

var reasonPhrases = map[StatusCode]string{
	StatusOK:               "OK",
	StatusBadRequest:       "Bad Request",
	StatusForbidden:        "Forbidden",
	StatusNotFound:         "Not Found",
	StatusMethodNotAllowed: "Method Not Allowed",
}

func (c StatusCode) Reason() string { return reasonPhrases[c] }

type Header struct {
	Key   string
	Value string
}

func defaultHeaders() []Header {
	return []Header{
		{"Content-Type", "text/html"},
		{"Content-Length", "0"},
		{"Connection", "close"},
	}
}

// contentHeaders describes a file body of size bytes.
func contentHeaders(name string, size int64) []Header {
	h := []Header{{"Content-Length", strconv.FormatInt(size, 10)}}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		h = append(h, Header{"Content-Type", ct})
	}
	return h
}

type responseWriter struct {
	w *bufio.Writer
}

func newResponseWriter(w io.Writer) *responseWriter {
	return &responseWriter{w: bufio.NewWriter(w)}
}

func (rw *responseWriter) WriteStatusLine(code StatusCode) error {
	_, err := fmt.Fprintf(rw.w, "HTTP/1.1 %d %s\r\n", int(code), code.Reason())
	return err
}

// WriteHeaders writes the default header set with overrides merged in, the
// blank line after it, and flushes.
func (rw *responseWriter) WriteHeaders(overrides ...Header) error {
	headers := mergeHeaders(defaultHeaders(), overrides)
	for _, h := range headers {
		if _, err := fmt.Fprintf(rw.w, "%s: %s\r\n", h.Key, h.Value); err != nil {
			return err
		}
	}
	if _, err := rw.w.WriteString("\r\n"); err != nil {
		return err
	}
	return rw.w.Flush()
}

// WriteBody copies exactly n bytes from r and flushes.
func (rw *responseWriter) WriteBody(r io.Reader, n int64) error {
	if _, err := io.CopyN(rw.w, r, n); err != nil {
		return err
	}
	return rw.w.Flush()
}

// mergeHeaders replaces matching keys in place and appends new ones.
func mergeHeaders(base, overrides []Header) []Header {
	for _, o := range overrides {
		replaced := false
		for i := range base {
			if base[i].Key == o.Key {
				base[i].Value = o.Value
				replaced = true
				break
			}
		}
		if !replaced {
			base = append(base, o)
		}
	}
	return base
}
