package api

import (
	"bytes"
	"encoding/json"
)

// CodeOK is the response code every endpoint uses for success
const CodeOK = 0

// Envelope is the {code, msg} wrapper shared by the backend's JSON responses.
// Some endpoints report the text under "message" instead of "msg".
type Envelope struct {
	Code    int    `json:"code"`
	Msg     string `json:"msg,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns the server-supplied message, if any
func (e Envelope) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

// Err returns nil for CodeOK and a *BusinessError otherwise, using fallback
// when the server sent no message
func (e Envelope) Err(fallback string) error {
	if e.Code == CodeOK {
		return nil
	}
	msg := e.Text()
	if msg == "" {
		msg = fallback
	}
	return &BusinessError{Code: e.Code, Status: 200, Message: msg}
}

// peekCode extracts "code" from a JSON object body without decoding the rest
func peekCode(body []byte) (int, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return 0, false
	}
	var probe struct {
		Code *int `json:"code"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Code == nil {
		return 0, false
	}
	return *probe.Code, true
}
