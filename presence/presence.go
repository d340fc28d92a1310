package presence

import (
	"os"

	"github.com/sirupsen/logrus"

	"codeshare-server/core"
	"codeshare-server/presence/memorystore"
	"codeshare-server/presence/redisstore"
)

// GetStore selects the presence backend from the environment. The default
// in-memory store is enough for a single process; the Redis backend lets the
// display-name table be shared by tooling.
func GetStore() core.PresenceStore {
	backend := os.Getenv("PRESENCE_BACKEND")

	backendField := logrus.Fields{
		"backend": backend,
	}

	var store core.PresenceStore
	switch backend {
	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		backendField["addr"] = addr
		store = redisstore.NewPresenceStore(addr)
	default:
		store = memorystore.NewPresenceStore()
		backendField["backend"] = "in-memory"
	}
	logrus.WithFields(backendField).Info("Use presence store")
	return store
}
