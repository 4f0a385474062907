package domain

import "strings"

type UserID = string

type Status string

const (
	StatusActive  Status = "active"
	StatusOnline  Status = "online"
	StatusBusy    Status = "busy"
	StatusJoinMe  Status = "join me"
	StatusAskMe   Status = "ask me"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// StatusCategory buckets a raw status string for presentation. The platform
// is loose about spelling ("join me" vs "joinme"), so matching is fuzzy.
type StatusCategory int

const (
	CategoryUnknown StatusCategory = iota
	CategoryOnline
	CategoryBusy
	CategoryJoinMe
	CategoryAway
)

func CategorizeStatus(raw string) StatusCategory {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "online":
		return CategoryOnline
	case "busy":
		return CategoryBusy
	case "join me", "joinme":
		return CategoryJoinMe
	case "ask me", "askme", "away":
		return CategoryAway
	default:
		return CategoryUnknown
	}
}

// FriendRecord is one entry of the friend graph as the platform reports it.
// DisplayName may be stale; Location is opaque (world-instance reference or
// a sentinel like "private"/"offline"/"traveling").
type FriendRecord struct {
	ID          UserID
	DisplayName string
	Status      string
	Location    string
}

// ExtractUserID digs a user id out of a loosely-shaped platform payload.
// The API uses several field names for the same thing depending on endpoint
// and event kind.
func ExtractUserID(payload map[string]any) UserID {
	if payload == nil {
		return ""
	}
	for _, key := range []string{"id", "userId", "userID"} {
		if id, ok := payload[key].(string); ok && id != "" {
			return id
		}
	}
	if user, ok := payload["user"].(map[string]any); ok {
		if id, ok := user["id"].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

// TargetSet is the set of friend ids events are surfaced for. It is computed
// once at startup; friends added while the watcher runs are not picked up
// until the next start (known limitation).
type TargetSet map[UserID]struct{}

func NewTargetSet(ids []UserID) TargetSet {
	set := make(TargetSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Wants reports whether events for id should be surfaced. An empty set
// matches everything.
func (t TargetSet) Wants(id UserID) bool {
	if len(t) == 0 {
		return true
	}
	_, ok := t[id]
	return ok
}

func (t TargetSet) Len() int { return len(t) }
