package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DraftRepository keeps the single autosaved draft per instructor in Redis.
// A draft is an opaque encoded snapshot; one slot per instructor, overwritten
// on every save.
type DraftRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDraftRepository constructs the repository. Drafts expire after ttl
// unless refreshed by a newer save.
func NewDraftRepository(client *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{client: client, ttl: ttl}
}

func draftKey(instructorID string) string {
	return "draft:chart:" + instructorID
}

// Get returns the stored draft, or nil when no draft exists.
func (r *DraftRepository) Get(ctx context.Context, instructorID string) ([]byte, error) {
	data, err := r.client.Get(ctx, draftKey(instructorID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return data, nil
}

// Set overwrites the instructor's draft slot and refreshes its TTL.
func (r *DraftRepository) Set(ctx context.Context, instructorID string, data []byte) error {
	if err := r.client.Set(ctx, draftKey(instructorID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set draft: %w", err)
	}
	return nil
}

// Clear removes the instructor's draft. Clearing an absent draft is a no-op.
func (r *DraftRepository) Clear(ctx context.Context, instructorID string) error {
	if err := r.client.Del(ctx, draftKey(instructorID)).Err(); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
