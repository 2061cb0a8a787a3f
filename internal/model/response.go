package model

import "encoding/json"

// Response is the single reply written for every request frame.
//
// Sessions is non-nil only for list-sessions replies, where an empty slice
// must still be encoded as "sessions":[].
type Response struct {
	OK       bool
	Sessions []string
	Error    string
}

// Success is the reply to a delivered send request.
func Success() Response {
	return Response{OK: true}
}

// SessionList is the reply to list-sessions. Order is preserved.
func SessionList(names []string) Response {
	if names == nil {
		names = []string{}
	}
	return Response{OK: true, Sessions: names}
}

// Failure is the reply for any request that could not be served.
func Failure(msg string) Response {
	return Response{OK: false, Error: msg}
}

func (r Response) MarshalJSON() ([]byte, error) {
	switch {
	case !r.OK:
		return json.Marshal(struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}{false, r.Error})
	case r.Sessions != nil:
		return json.Marshal(struct {
			OK       bool     `json:"ok"`
			Sessions []string `json:"sessions"`
		}{true, r.Sessions})
	default:
		return []byte(`{"ok":true}`), nil
	}
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var w struct {
		OK       bool     `json:"ok"`
		Sessions []string `json:"sessions"`
		Error    string   `json:"error"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Response{OK: w.OK, Sessions: w.Sessions, Error: w.Error}
	return nil
}
