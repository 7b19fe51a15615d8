package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

type Method int

const (
	MethodOther Method = iota
	MethodGet
	MethodHead
	MethodPost
)

var methodTokens = map[string]Method{
	"GET":  MethodGet,
	"HEAD": MethodHead,
	"POST": MethodPost,
}

func parseMethod(token string) Method {
	if m, ok := methodTokens[token]; ok {
		return m
	}
	return MethodOther
}

// Outcome is the terminal state a request ended in.
type Outcome int

const (
	OutcomeParseFailed Outcome = iota
	OutcomePathInvalid
	OutcomeMethodForbidden
	OutcomeMethodNotAllowed
	OutcomeHeadDone
	OutcomeGetDone
)

var outcomeNames = [...]string{
	OutcomeParseFailed:      "parse failed",
	OutcomePathInvalid:      "path invalid",
	OutcomeMethodForbidden:  "method forbidden",
	OutcomeMethodNotAllowed: "method not allowed",
	OutcomeHeadDone:         "head done",
	OutcomeGetDone:          "get done",
}

func (o Outcome) String() string { return outcomeNames[o] }

type requestHandler struct {
	resolver *Resolver
}

// serve reads one request from rw and writes its response. The returned
// error is nil only when a complete response was written.
func (h *requestHandler) serve(rw io.ReadWriter) (Outcome, error) {
	req, err := ParseRequest(newRequestReader(rw))
	if err != nil {
		if isBadRequest(err) {
			if werr := writeEmpty(newResponseWriter(rw), StatusBadRequest); werr != nil {
				return OutcomeParseFailed, werr
			}
		}
		return OutcomeParseFailed, err
	}

	w := newResponseWriter(rw)

	resolved, err := h.resolver.Resolve(req.Path)
	if err != nil {
		return OutcomePathInvalid, writeEmpty(w, StatusNotFound)
	}

	switch parseMethod(req.Method) {
	case MethodPost:
		return OutcomeMethodForbidden, writeEmpty(w, StatusForbidden)
	case MethodHead:
		return OutcomeHeadDone, writeHead(w, resolved)
	case MethodGet:
		return OutcomeGetDone, writeFile(w, resolved)
	default:
		return OutcomeMethodNotAllowed, writeEmpty(w, StatusMethodNotAllowed)
	}
}

// isBadRequest reports whether a parse error is answered with 400.
func isBadRequest(err error) bool {
	return errors.Is(err, ErrMalformedRequestLine) || errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrLineTooLong) || errors.Is(err, ErrTooManyHeaders)
}

func writeEmpty(w *responseWriter, code StatusCode) error {
	if err := w.WriteStatusLine(code); err != nil {
		return err
	}
	return w.WriteHeaders()
}

func writeHead(w *responseWriter, resolved ResolvedPath) error {
	if err := w.WriteStatusLine(StatusOK); err != nil {
		return err
	}
	return w.WriteHeaders(contentHeaders(resolved.Name, resolved.Size)...)
}

// writeFile sizes the body from the open file so Content-Length matches the
// bytes that follow.
func writeFile(w *responseWriter, resolved ResolvedPath) error {
	f, err := os.Open(resolved.Name)
	if err != nil {
		return fmt.Errorf("open %s: %w", resolved.Name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	if err := w.WriteStatusLine(StatusOK); err != nil {
		return err
	}
	if err := w.WriteHeaders(contentHeaders(resolved.Name, size)...); err != nil {
		return err
	}
	return w.WriteBody(f, size)
}
