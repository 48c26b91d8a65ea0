package service

import (
	"context"
	"log"

	"github.com/BrettBuhler/task-stack/internal/auth"
	"github.com/BrettBuhler/task-stack/internal/repository"
)

// insertWithOwner stamps the session user as owner before calling insert.
// Without a session the insert still runs, ownerless, and the backend decides.
// A backend that has no user_id column gets exactly one retry without it.
func insertWithOwner(ctx context.Context, what string, setOwner func(string), insert func(withOwner bool) error) error {
	sess, ok := auth.FromContext(ctx)
	if !ok {
		log.Printf("[warn] create %s: no authenticated session, inserting without owner", what)
		return insert(false)
	}

	setOwner(sess.UserID)
	err := insert(true)
	if err != nil && repository.IsMissingColumn(err, "user_id") {
		log.Printf("[warn] create %s: backend has no user_id column, retrying without owner", what)
		setOwner("")
		err = insert(false)
	}
	return err
}
