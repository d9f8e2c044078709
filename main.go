// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("go-melonsync - Offline-First Delta Sync Server")
	fmt.Println("==============================================")
	fmt.Println()
	fmt.Println("go-melonsync implements the WatermelonDB pull/push synchronization protocol")
	fmt.Println("on top of PostgreSQL: clients pull categorized deltas since a checkpoint and")
	fmt.Println("push local edits back in a single atomic, idempotent batch.")
	fmt.Println()
	fmt.Println("Available Examples:")
	fmt.Println()
	fmt.Println("1. Taskboard Server (examples/taskboard_server/)")
	fmt.Println("   A complete sync server over a workspace/project/task/comment hierarchy")
	fmt.Println("   Features: JWT auth, ordered transactional merge, clock-drift protection")
	fmt.Println("   Run: cd examples/taskboard_server && go run .")
	fmt.Println()
}
