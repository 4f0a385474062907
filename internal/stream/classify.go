// Package stream owns the pipeline websocket: connection lifecycle with
// capped-backoff reconnects, and classification of inbound friend events.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
)

type EventKind string

const (
	KindFriendOnline   EventKind = "friend-online"
	KindFriendOffline  EventKind = "friend-offline"
	KindFriendLocation EventKind = "friend-location"
	KindFriendUpdate   EventKind = "friend-update"
)

var (
	// ErrIgnoredKind marks event types the watcher doesn't handle.
	ErrIgnoredKind = errors.New("ignored event kind")
	// ErrNoSubject marks a handled kind whose payload carries no user id.
	ErrNoSubject = errors.New("event has no subject user id")
)

// Event is one classified friend-state change.
type Event struct {
	Kind              EventKind
	UserID            domain.UserID
	Location          string
	Status            string
	StatusDescription string
}

type envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// Classify parses a raw pipeline message into an Event. The content field
// is frequently double-JSON-encoded (a JSON string holding more JSON); one
// extra unwrap level handles that quirk.
func Classify(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}

	kind := EventKind(env.Type)
	switch kind {
	case KindFriendOnline, KindFriendOffline, KindFriendLocation, KindFriendUpdate:
	default:
		return Event{}, ErrIgnoredKind
	}

	content := decodeContent(env.Content)

	userID := subjectID(content)
	if userID == "" {
		return Event{}, ErrNoSubject
	}

	ev := Event{Kind: kind, UserID: userID}
	if loc, ok := content["location"].(string); ok {
		ev.Location = loc
	}
	if status, ok := content["status"].(string); ok {
		ev.Status = status
	}
	if desc, ok := content["statusDescription"].(string); ok {
		ev.StatusDescription = desc
	}
	return ev, nil
}

func decodeContent(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	var content map[string]any
	if err := json.Unmarshal(raw, &content); err == nil {
		return content
	}

	// Double-encoded: the value is a JSON string containing JSON.
	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(inner), &content); err != nil {
		return nil
	}
	return content
}

// subjectID prefers the event-specific userId field, then a nested user
// object, then a bare id.
func subjectID(content map[string]any) domain.UserID {
	if content == nil {
		return ""
	}
	if id, ok := content["userId"].(string); ok && id != "" {
		return id
	}
	if user, ok := content["user"].(map[string]any); ok {
		if id, ok := user["id"].(string); ok && id != "" {
			return id
		}
	}
	if id, ok := content["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
