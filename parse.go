package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	maxLineBytes = 8 << 10
	maxHeaders   = 100
)

var (
	ErrEmptyRequest         = errors.New("empty request")
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrMalformedHeader      = errors.New("malformed header")
	ErrLineTooLong          = errors.New("line too long")
	ErrTooManyHeaders       = errors.New("too many headers")
)

// Request is the parsed head of one HTTP request. Path is kept exactly as sent.
type Request struct {
	Method  string
	Path    string
	Version string
	Headers map[string]string
}

// ParseRequest reads a request line and its headers from r. The body, if any,
// is left unread.
func ParseRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if line == "" {
		return nil, ErrEmptyRequest
	}

	parts := strings.Split(line, " ")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}

	req := &Request{
		Method:  parts[0],
		Path:    parts[1],
		Version: parts[2],
		Headers: make(map[string]string),
	}
	if errors.Is(err, io.EOF) {
		return req, nil
	}

	for {
		line, err := readLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if line == "" {
			return req, nil
		}

		key, value, found := strings.Cut(line, ": ")
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		if _, dup := req.Headers[key]; !dup && len(req.Headers) == maxHeaders {
			return nil, ErrTooManyHeaders
		}
		req.Headers[key] = value

		if err != nil {
			return req, nil
		}
	}
}

// readLine returns one line without its terminator. A final line cut short
// by end of stream comes back together with io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	b, err := r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return "", ErrLineTooLong
	}
	return strings.TrimRight(string(b), "\r\n"), err
}

func newRequestReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, maxLineBytes)
}
