// Package service holds the business rules that sit between the HTTP handlers
// and the stores: validation, authorization, author enrichment and activity.
package service

import (
	"context"

	"rau/internal/models"
	"rau/internal/repository"
)

// ActivityPublisher delivers best-effort realtime events to one recipient.
type ActivityPublisher interface {
	Publish(ctx context.Context, recipientID, actorID uint, eventType string, payload any)
}

// FlagChecker evaluates a feature flag for a user.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

type noopActivity struct{}

func (noopActivity) Publish(context.Context, uint, uint, string, any) {}

func activityOrNoop(p ActivityPublisher) ActivityPublisher {
	if p == nil {
		return noopActivity{}
	}
	return p
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// clampLimit maps non-positive limits to def and caps at max.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// attachPostAuthors embeds the public profile of every post's author with one store call.
func attachPostAuthors(ctx context.Context, users repository.UserRepository, posts ...*models.Post) error {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		if p != nil {
			ids = append(ids, p.AuthorID)
		}
	}
	authors, err := users.PublicViews(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		if p != nil {
			p.Author = authors[p.AuthorID]
		}
	}
	return nil
}

func attachCommentAuthors(ctx context.Context, users repository.UserRepository, comments ...*models.Comment) error {
	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		if c != nil {
			ids = append(ids, c.AuthorID)
		}
	}
	authors, err := users.PublicViews(ctx, ids)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if c != nil {
			c.Author = authors[c.AuthorID]
		}
	}
	return nil
}
