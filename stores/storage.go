package stores

import (
	"os"

	"github.com/sirupsen/logrus"

	"codeshare-server/core"
	"codeshare-server/stores/filesystem"
	"codeshare-server/stores/memory"
	"codeshare-server/stores/sqlite"
)

// GetStore selects the snapshot backend from the environment. Snapshots are
// the only durable state; rooms and their buffers stay ephemeral.
func GetStore() core.SnapshotStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.SnapshotStore

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		storageField["basePath"] = basePath
		store = filesystem.NewSnapshotStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewSnapshotStore(dataSourceName)
	default:
		store = memory.NewSnapshotStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use snapshot storage")
	return store
}
