package interfaces

import (
	"context"
)

// MembershipAuthority определяет интерфейс для проверки членства в канале.
// The membership store itself (groups, channels, users) lives in a separate
// service; this core only asks it questions and never caches the answers, so
// a revoked membership takes effect on the very next operation.
type MembershipAuthority interface {
	IsMember(ctx context.Context, userID, channelID string) (bool, error)
}
