// Package protocol defines the JSON wire messages exchanged between the
// tickstream server and its clients. Every frame is a single JSON object
// with a mandatory "type" discriminator.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TimeFormat is the clock representation pushed in time_update frames.
const TimeFormat = "2006-01-02 15:04:05"

// Server-to-client frame types.
const (
	TypeWelcome         = "welcome"
	TypeTimeUpdate      = "time_update"
	TypeFibonacciResult = "fibonacci_result"
	TypeUsernameUpdated = "username_updated"
	TypeUsersList       = "users_list"
	TypeError           = "error"
)

// Client-to-server frame types.
const (
	TypeFibonacci      = "fibonacci"
	TypeUpdateUsername = "update_username"
	TypeListUsers      = "list_users"
)

var (
	ErrMalformed = errors.New("malformed message")
	ErrInvalidN  = errors.New("n must be a whole number")
)

type Welcome struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	ClientID string `json:"client_id"`
}

type TimeUpdate struct {
	Type string `json:"type"`
	Time string `json:"time"`
}

type FibonacciResult struct {
	Type   string `json:"type"`
	N      int    `json:"n"`
	Result int64  `json:"result"`
}

type UsernameUpdated struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type UserEntry struct {
	Username   string `json:"username"`
	OnlineTime string `json:"online_time"`
}

type UsersList struct {
	Type  string      `json:"type"`
	Users []UserEntry `json:"users"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewWelcome(message, clientID string) Welcome {
	return Welcome{Type: TypeWelcome, Message: message, ClientID: clientID}
}

func NewTimeUpdate(t string) TimeUpdate {
	return TimeUpdate{Type: TypeTimeUpdate, Time: t}
}

func NewFibonacciResult(n int, result int64) FibonacciResult {
	return FibonacciResult{Type: TypeFibonacciResult, N: n, Result: result}
}

func NewUsernameUpdated(username string) UsernameUpdated {
	return UsernameUpdated{Type: TypeUsernameUpdated, Username: username}
}

func NewUsersList(users []UserEntry) UsersList {
	if users == nil {
		users = []UserEntry{}
	}
	return UsersList{Type: TypeUsersList, Users: users}
}

func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

// RequestKind enumerates the closed set of client request variants.
type RequestKind int

const (
	KindUnknown RequestKind = iota
	KindFibonacci
	KindUpdateUsername
	KindListUsers
)

// Request is a client frame decoded once at the protocol boundary.
type Request struct {
	Kind     RequestKind
	N        int
	Username string
}

type rawRequest struct {
	Type     string      `json:"type"`
	N        json.Number `json:"n"`
	Username string      `json:"username"`
}

// DecodeRequest parses a client frame. Unparseable input or a missing type
// yields ErrMalformed; a fibonacci request with a fractional or missing n
// yields ErrInvalidN. An unrecognized type decodes to KindUnknown with a nil
// error, which callers ignore.
func DecodeRequest(data []byte) (Request, error) {
	var raw rawRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Type == "" {
		return Request{}, ErrMalformed
	}

	switch raw.Type {
	case TypeFibonacci:
		n, err := raw.N.Int64()
		if err != nil {
			return Request{}, ErrInvalidN
		}
		return Request{Kind: KindFibonacci, N: int(n)}, nil
	case TypeUpdateUsername:
		return Request{Kind: KindUpdateUsername, Username: raw.Username}, nil
	case TypeListUsers:
		return Request{Kind: KindListUsers}, nil
	default:
		return Request{Kind: KindUnknown}, nil
	}
}

// FormatOnlineTime renders an online duration as "XhYmZs".
func FormatOnlineTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	return fmt.Sprintf("%dh%dm%ds", total/3600, (total%3600)/60, total%60)
}
