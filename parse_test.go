package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    *Request
		expectedErr error
	}{
		{
			name:  "Request line and headers",
			input: "GET /index.html HTTP/1.1\r\nHost: localhost:8080\r\nUser-Agent: curl/8.0\r\n\r\n",
			expected: &Request{
				Method:  "GET",
				Path:    "/index.html",
				Version: "HTTP/1.1",
				Headers: map[string]string{"Host": "localhost:8080", "User-Agent": "curl/8.0"},
			},
		},
		{
			name:  "Bare LF terminators",
			input: "HEAD / HTTP/1.0\nAccept: */*\n\n",
			expected: &Request{
				Method: "HEAD", Path: "/", Version: "HTTP/1.0",
				Headers: map[string]string{"Accept": "*/*"},
			},
		},
		{
			name:  "Duplicate header keeps last value",
			input: "GET / HTTP/1.1\r\nX-Test: one\r\nx-test: lower\r\nX-Test: two\r\n\r\n",
			expected: &Request{
				Method: "GET", Path: "/", Version: "HTTP/1.1",
				Headers: map[string]string{"X-Test": "two", "x-test": "lower"},
			},
		},
		{
			name:  "Value keeps further separators",
			input: "GET / HTTP/1.1\r\nReferer: http://a: b\r\n\r\n",
			expected: &Request{
				Method: "GET", Path: "/", Version: "HTTP/1.1",
				Headers: map[string]string{"Referer": "http://a: b"},
			},
		},
		{
			name:  "Extra tokens are ignored",
			input: "GET /a b HTTP/1.1\r\n\r\n",
			expected: &Request{
				Method: "GET", Path: "/a", Version: "b",
				Headers: map[string]string{},
			},
		},
		{
			name:  "Path is not normalized",
			input: "GET /../x/./y?q=1 HTTP/1.1\r\n\r\n",
			expected: &Request{
				Method: "GET", Path: "/../x/./y?q=1", Version: "HTTP/1.1",
				Headers: map[string]string{},
			},
		},
		{
			name:  "End of stream ends headers",
			input: "GET / HTTP/1.1\r\nHost: x",
			expected: &Request{
				Method: "GET", Path: "/", Version: "HTTP/1.1",
				Headers: map[string]string{"Host": "x"},
			},
		},
		{
			name:  "Request line without terminator",
			input: "GET / HTTP/1.1",
			expected: &Request{
				Method: "GET", Path: "/", Version: "HTTP/1.1",
				Headers: map[string]string{},
			},
		},
		{name: "Empty stream", input: "", expectedErr: ErrEmptyRequest},
		{name: "Blank first line", input: "\r\n", expectedErr: ErrEmptyRequest},
		{name: "Single token", input: "GARBAGE\r\n\r\n", expectedErr: ErrMalformedRequestLine},
		{name: "Two tokens", input: "GET /\r\n\r\n", expectedErr: ErrMalformedRequestLine},
		{name: "Double space", input: "GET  HTTP/1.1\r\n\r\n", expected: &Request{Method: "GET", Path: "", Version: "HTTP/1.1", Headers: map[string]string{}}},
		{name: "Header without separator", input: "GET / HTTP/1.1\r\nHost localhost\r\n\r\n", expectedErr: ErrMalformedHeader},
		{name: "Header without space after colon", input: "GET / HTTP/1.1\r\nHost:localhost\r\n\r\n", expectedErr: ErrMalformedHeader},
		{name: "Oversized line", input: "GET /" + strings.Repeat("a", maxLineBytes) + " HTTP/1.1\r\n\r\n", expectedErr: ErrLineTooLong},
		{name: "Too many headers", input: "GET / HTTP/1.1\r\n" + manyHeaders(maxHeaders+1) + "\r\n", expectedErr: ErrTooManyHeaders},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest(newRequestReader(strings.NewReader(tt.input)))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, req)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req)
		})
	}
}

func TestParseRequestLeavesBody(t *testing.T) {
	r := newRequestReader(strings.NewReader("POST /form HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"))

	req, err := ParseRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "POST", req.Method)

	rest, err := r.Peek(5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(rest))
}

func manyHeaders(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("X-H")
		b.WriteString(strings.Repeat("h", i))
		b.WriteString(": v\r\n")
	}
	return b.String()
}
