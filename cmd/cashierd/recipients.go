package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/cashier/notify"
)

// profilePrefix is where the host application keeps user profiles as
// Redis hashes with "email" and "name" fields.
const profilePrefix = "cashier:users:"

// redisRecipients resolves user ids from profile hashes.
type redisRecipients struct {
	db redis.UniversalClient
}

var _ notify.Recipients = redisRecipients{}

func (r redisRecipients) Lookup(ctx context.Context, userID string) (notify.Recipient, error) {
	fields, err := r.db.HGetAll(ctx, profilePrefix+userID).Result()
	if err != nil {
		return notify.Recipient{}, fmt.Errorf("recipients: %s: %w", userID, err)
	}
	if fields["email"] == "" {
		return notify.Recipient{}, fmt.Errorf("%w: %s", notify.ErrNoRecipient, userID)
	}
	return notify.Recipient{Email: fields["email"], Name: fields["name"]}, nil
}
