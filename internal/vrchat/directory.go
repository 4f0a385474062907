package vrchat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
)

const (
	maxPageSize   = 100
	cacheCapacity = 2048
)

// Directory enumerates the friend list and resolves display and world names
// through bounded LRU caches, so a long-running watcher can't grow without
// limit. Lookups degrade gracefully: a failed name resolution yields an
// empty string (callers fall back to the raw id) and a failed world
// resolution yields the world id itself.
type Directory struct {
	session *Session
	logger  *slog.Logger

	names  *lru.Cache[domain.UserID, string]
	worlds *lru.Cache[string, string]
}

func NewDirectory(session *Session, logger *slog.Logger) (*Directory, error) {
	names, err := lru.New[domain.UserID, string](cacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("create name cache: %w", err)
	}
	worlds, err := lru.New[string, string](cacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("create world cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		session: session,
		logger:  logger.With("component", "directory"),
		names:   names,
		worlds:  worlds,
	}, nil
}

// ListFriends pages through the friends listing. Any failure ends the walk
// and returns whatever accumulated so far; a partial list beats none.
func (d *Directory) ListFriends(ctx context.Context, offline bool, pageSize int) []map[string]any {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var out []map[string]any
	offset := 0
	for {
		query := url.Values{}
		query.Set("offset", strconv.Itoa(offset))
		query.Set("n", strconv.Itoa(pageSize))
		query.Set("offline", strconv.FormatBool(offline))

		resp, err := d.session.do(ctx, request{method: http.MethodGet, path: "auth/user/friends", query: query})
		if err != nil {
			d.logger.Warn("friends listing failed", "offline", offline, "error", err)
			return out
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			d.logger.Warn("friends listing failed", "offline", offline, "status", resp.StatusCode)
			drain(resp)
			return out
		}

		var page []map[string]any
		err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&page)
		_ = resp.Body.Close()
		if err != nil {
			d.logger.Warn("friends page decode failed", "offline", offline, "error", err)
			return out
		}
		if len(page) == 0 {
			return out
		}

		out = append(out, page...)
		if len(page) < pageSize {
			return out
		}
		offset += pageSize
	}
}

// FetchAllFriendIDs unions the offline and online listings, deduplicated by
// id whichever field the payload carries it in.
func (d *Directory) FetchAllFriendIDs(ctx context.Context) []domain.UserID {
	seen := map[domain.UserID]struct{}{}
	var ids []domain.UserID
	for _, offline := range []bool{true, false} {
		for _, friend := range d.ListFriends(ctx, offline, maxPageSize) {
			id := domain.ExtractUserID(friend)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// DisplayName resolves a user id to its display name, cached. Returns ""
// on any failure so callers can fall back to the raw id.
func (d *Directory) DisplayName(ctx context.Context, userID domain.UserID) string {
	if userID == "" {
		return ""
	}
	if name, ok := d.names.Get(userID); ok {
		return name
	}

	resp, err := d.session.do(ctx, request{method: http.MethodGet, path: "users/" + url.PathEscape(userID)})
	if err != nil {
		d.logger.Debug("user lookup failed", "user", userID, "error", err)
		return ""
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		drain(resp)
		return ""
	}
	payload, err := decodeObject(resp)
	if err != nil {
		return ""
	}

	name, _ := payload["displayName"].(string)
	if name != "" {
		d.names.Add(userID, name)
	}
	return name
}

// WorldName resolves a world id to its name, cached. Falls back to the
// world id itself so the caller always has something to show.
func (d *Directory) WorldName(ctx context.Context, worldID string) string {
	if worldID == "" {
		return ""
	}
	if name, ok := d.worlds.Get(worldID); ok {
		return name
	}

	resp, err := d.session.do(ctx, request{method: http.MethodGet, path: "worlds/" + url.PathEscape(worldID)})
	if err != nil {
		d.logger.Debug("world lookup failed", "world", worldID, "error", err)
		return worldID
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		drain(resp)
		return worldID
	}
	payload, err := decodeObject(resp)
	if err != nil {
		return worldID
	}

	name, _ := payload["name"].(string)
	if name == "" {
		return worldID
	}
	d.worlds.Add(worldID, name)
	return name
}

// ResolveLocation turns a raw location string into something readable:
// world-instance references resolve to the world name, sentinels such as
// "private"/"offline"/"traveling" pass through unchanged.
func (d *Directory) ResolveLocation(ctx context.Context, location string) string {
	if location == "" {
		return domain.UnknownLocation
	}
	if worldID, ok := domain.ParseWorldID(location); ok {
		return d.WorldName(ctx, worldID)
	}
	return location
}
