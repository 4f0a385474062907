// Package snapshot renders the one-shot view of current friend states at
// startup.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hazuki-dev/vrcwatch/internal/adapters/render/feed"
	"github.com/hazuki-dev/vrcwatch/internal/domain"
	"github.com/hazuki-dev/vrcwatch/internal/vrchat"
)

type Service struct {
	directory *vrchat.Directory
	logger    *slog.Logger
	out       io.Writer
}

func NewService(directory *vrchat.Directory, logger *slog.Logger, out io.Writer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Service{directory: directory, logger: logger.With("component", "snapshot"), out: out}
}

// Result summarizes one snapshot pass.
type Result struct {
	Total   int // unique friends across both listings
	Shown   int
	Dropped int // outside the target set
}

// Run enumerates the full friend list (offline and online), deduplicates by
// id, filters to the target set and renders one line per entry. Read-only
// apart from warming the name and world caches.
func (s *Service) Run(ctx context.Context, targets domain.TargetSet) Result {
	merged := s.mergedFriends(ctx)

	var entries []feed.SnapshotEntry
	dropped := 0
	for _, friend := range merged {
		id := domain.ExtractUserID(friend)
		if !targets.Wants(id) {
			dropped++
			continue
		}

		name, _ := friend["displayName"].(string)
		if name == "" {
			name = s.directory.DisplayName(ctx, id)
		}
		if name == "" {
			name = id
		}
		status, _ := friend["status"].(string)
		location, _ := friend["location"].(string)

		entries = append(entries, feed.SnapshotEntry{
			Friend: domain.FriendRecord{
				ID:          id,
				DisplayName: name,
				Status:      status,
			},
			Location: s.directory.ResolveLocation(ctx, location),
		})
	}

	targetCount := targets.Len()
	if targetCount == 0 {
		targetCount = len(entries)
	}
	fmt.Fprintln(s.out, feed.Snapshot(entries, len(merged), dropped, targetCount))

	return Result{Total: len(merged), Shown: len(entries), Dropped: dropped}
}

// mergedFriends joins both listings keyed by id; the later (online) record
// wins on duplicates, matching the fresher state. Records without an id are
// excluded entirely, so they never skew the summary counts.
func (s *Service) mergedFriends(ctx context.Context) []map[string]any {
	byID := map[domain.UserID]int{}
	var merged []map[string]any

	for _, offline := range []bool{true, false} {
		for _, friend := range s.directory.ListFriends(ctx, offline, 0) {
			id := domain.ExtractUserID(friend)
			if id == "" {
				continue
			}
			if idx, dup := byID[id]; dup {
				merged[idx] = friend
				continue
			}
			byID[id] = len(merged)
			merged = append(merged, friend)
		}
	}
	return merged
}
