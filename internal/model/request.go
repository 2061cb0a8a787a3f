// Package model defines the messages exchanged with the browser extension.
//
// A request is a closed set of variants selected by the "action" field.
// Every variant implements Request; callers dispatch with a type switch.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Action is the request discriminator carried in the "action" field.
type Action string

const (
	ActionSend         Action = "send"
	ActionListSessions Action = "list-sessions"
)

// Side marks which half of a diff a selection came from.
type Side string

const (
	SideUnset Side = ""
	SideOld   Side = "old"
	SideNew   Side = "new"
)

var (
	// ErrUnknownAction is returned for a missing or unrecognized discriminator.
	ErrUnknownAction = errors.New("unknown action")
	// ErrMalformed is returned when the frame body is not a JSON object.
	ErrMalformed = errors.New("invalid JSON")
	// ErrInvalidRequest is returned when a known action carries a bad payload.
	ErrInvalidRequest = errors.New("invalid request")
)

// Request is one of *SendRequest or *ListSessionsRequest.
type Request interface {
	Action() Action
	isRequest()
}

// SendRequest asks the host to type a code selection into a tmux session.
type SendRequest struct {
	File string
	// StartLine and EndLine are 1-based; zero means absent.
	StartLine int
	EndLine   int
	Side      Side
	Code      string
	Question  string
	// TmuxTarget is the session name chosen by the caller.
	TmuxTarget string
	// DebugHTML is opaque diagnostic data and is never interpreted.
	DebugHTML string
}

func (*SendRequest) Action() Action { return ActionSend }
func (*SendRequest) isRequest()     {}

// ListSessionsRequest asks for the current tmux session names.
type ListSessionsRequest struct{}

func (*ListSessionsRequest) Action() Action { return ActionListSessions }
func (*ListSessionsRequest) isRequest()     {}

// sendWire uses pointers so absent fields can be told apart from zero values.
type sendWire struct {
	Action     Action  `json:"action"`
	File       *string `json:"file"`
	StartLine  *int    `json:"start_line,omitempty"`
	EndLine    *int    `json:"end_line,omitempty"`
	Side       *Side   `json:"side,omitempty"`
	Code       *string `json:"code"`
	Question   *string `json:"question,omitempty"`
	TmuxTarget *string `json:"tmux_target"`
	DebugHTML  *string `json:"debug_html,omitempty"`
}

// DecodeRequest parses one frame body into a Request.
//
// The discriminator is read first; an absent or unknown action is
// ErrUnknownAction. Payload problems are ErrInvalidRequest. No partially
// populated request is ever returned alongside an error.
func DecodeRequest(data []byte) (Request, error) {
	// encoding/json would quietly swap bad bytes for U+FFFD and the
	// altered code would still be delivered.
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: body is not valid UTF-8", ErrMalformed)
	}
	var head struct {
		Action json.RawMessage `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var action Action
	if len(head.Action) == 0 || json.Unmarshal(head.Action, &action) != nil {
		return nil, ErrUnknownAction
	}

	switch action {
	case ActionListSessions:
		return &ListSessionsRequest{}, nil
	case ActionSend:
		return decodeSend(data)
	default:
		return nil, ErrUnknownAction
	}
}

func decodeSend(data []byte) (*SendRequest, error) {
	var w sendWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if w.File == nil {
		return nil, missing("file")
	}
	if w.Code == nil {
		return nil, missing("code")
	}
	if *w.Code == "" {
		return nil, fmt.Errorf("%w: code must not be empty", ErrInvalidRequest)
	}
	if w.TmuxTarget == nil {
		return nil, missing("tmux_target")
	}

	req := &SendRequest{
		File:       *w.File,
		Code:       *w.Code,
		TmuxTarget: *w.TmuxTarget,
	}
	if w.StartLine != nil {
		if *w.StartLine < 1 {
			return nil, fmt.Errorf("%w: start_line must be positive, got %d", ErrInvalidRequest, *w.StartLine)
		}
		req.StartLine = *w.StartLine
	}
	if w.EndLine != nil {
		if *w.EndLine < 1 {
			return nil, fmt.Errorf("%w: end_line must be positive, got %d", ErrInvalidRequest, *w.EndLine)
		}
		req.EndLine = *w.EndLine
	}
	if req.StartLine > 0 && req.EndLine > 0 && req.EndLine < req.StartLine {
		return nil, fmt.Errorf("%w: end_line %d is before start_line %d", ErrInvalidRequest, req.EndLine, req.StartLine)
	}
	if w.Side != nil {
		switch *w.Side {
		case SideOld, SideNew:
			req.Side = *w.Side
		default:
			return nil, fmt.Errorf("%w: side must be %q or %q, got %q", ErrInvalidRequest, SideOld, SideNew, *w.Side)
		}
	}
	if w.Question != nil {
		req.Question = *w.Question
	}
	if w.DebugHTML != nil {
		req.DebugHTML = *w.DebugHTML
	}
	return req, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing required field %q", ErrInvalidRequest, field)
}

// EncodeRequest renders a Request in the wire shape DecodeRequest accepts.
// The host never sends requests; the CLI and tests do.
func EncodeRequest(req Request) ([]byte, error) {
	switch r := req.(type) {
	case *ListSessionsRequest:
		return json.Marshal(struct {
			Action Action `json:"action"`
		}{ActionListSessions})
	case *SendRequest:
		w := sendWire{
			Action:     ActionSend,
			File:       &r.File,
			Code:       &r.Code,
			TmuxTarget: &r.TmuxTarget,
		}
		if r.StartLine > 0 {
			w.StartLine = &r.StartLine
		}
		if r.EndLine > 0 {
			w.EndLine = &r.EndLine
		}
		if r.Side != SideUnset {
			w.Side = &r.Side
		}
		if r.Question != "" {
			w.Question = &r.Question
		}
		if r.DebugHTML != "" {
			w.DebugHTML = &r.DebugHTML
		}
		return json.Marshal(w)
	default:
		return nil, fmt.Errorf("encode request: unsupported type %T", req)
	}
}
