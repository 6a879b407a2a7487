package database

import (
	"fmt"
	"sync"
	"time"
)

// Serverless platforms reuse warm processes across invocations. Opening a
// fresh database per request would exhaust connection slots, so the store is
// created once per cold start and handed to every handler via
// GetSharedDatabase.
var (
	sharedMu       sync.Mutex
	sharedDB       DatabaseInterface
	sharedConfig   DatabaseConfig
	sharedSince    time.Time
	sharedRequests int64
)

// GetSharedDatabase returns the process-wide store, creating it on first use.
// A config change (only possible in tests or local tooling) recreates it.
func GetSharedDatabase(config DatabaseConfig) DatabaseInterface {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedDB != nil && sharedConfig == config {
		sharedRequests++
		return sharedDB
	}

	if sharedDB != nil {
		sharedDB.Close()
	}
	sharedDB = NewDatabase(config)
	sharedConfig = config
	sharedSince = time.Now()
	sharedRequests = 1
	return sharedDB
}

// ResetSharedDatabase closes and forgets the shared store. Test helper.
func ResetSharedDatabase() {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedDB != nil {
		sharedDB.Close()
		sharedDB = nil
	}
	sharedRequests = 0
}

// GetConnectionStats reports shared-store reuse, exposed on the debug
// endpoint.
func GetConnectionStats() map[string]interface{} {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	stats := map[string]interface{}{
		"initialized": sharedDB != nil,
		"requests":    sharedRequests,
		"driver":      sharedConfig.Driver,
	}
	if sharedDB != nil {
		stats["age"] = fmt.Sprintf("%s", time.Since(sharedSince).Round(time.Second))
	}
	return stats
}
