package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"rau/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	revokedTokenKey = "blacklist:%s"
	wsTicketKey     = "ws_ticket:%s"

	// WSTicketTTL bounds how long a WebSocket ticket can wait to be redeemed.
	WSTicketTTL = 30 * time.Second
)

// ErrTicketInvalid is returned for unknown, expired or already used tickets.
var ErrTicketInvalid = errors.New("invalid or expired ticket")

// RevokeToken marks jti as revoked until the token would have expired anyway.
func RevokeToken(ctx context.Context, rdb *redis.Client, jti string, ttl time.Duration) error {
	if rdb == nil || jti == "" || ttl <= 0 {
		return nil
	}
	ctx, span := observability.StartRedisSpan(ctx, "revoke_token")
	err := rdb.Set(ctx, fmt.Sprintf(revokedTokenKey, jti), "1", ttl).Err()
	observability.EndSpan(span, err)
	return err
}

// IsTokenRevoked reports whether jti was revoked. Without Redis nothing is revoked.
func IsTokenRevoked(ctx context.Context, rdb *redis.Client, jti string) (bool, error) {
	if rdb == nil || jti == "" {
		return false, nil
	}
	n, err := rdb.Exists(ctx, fmt.Sprintf(revokedTokenKey, jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IssueWSTicket stores a single-use ticket that authenticates userID on the
// WebSocket upgrade, where browsers cannot send an Authorization header.
func IssueWSTicket(ctx context.Context, rdb *redis.Client, userID uint) (string, error) {
	if rdb == nil {
		return "", errors.New("redis unavailable")
	}
	ticket := uuid.NewString()
	ctx, span := observability.StartRedisSpan(ctx, "issue_ws_ticket")
	err := rdb.Set(ctx, fmt.Sprintf(wsTicketKey, ticket), strconv.FormatUint(uint64(userID), 10), WSTicketTTL).Err()
	observability.EndSpan(span, err)
	if err != nil {
		return "", err
	}
	return ticket, nil
}

// ConsumeWSTicket redeems a ticket exactly once and returns its user id.
func ConsumeWSTicket(ctx context.Context, rdb *redis.Client, ticket string) (uint, error) {
	if rdb == nil || ticket == "" {
		return 0, ErrTicketInvalid
	}
	raw, err := rdb.GetDel(ctx, fmt.Sprintf(wsTicketKey, ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTicketInvalid
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrTicketInvalid
	}
	return uint(id), nil
}
