// Depview decides which JVM build targets need a rebuild and records the
// dependency usages they compile against.
package main

import "github.com/albertocavalcante/depview/cmd/depview/internal/cli"

func main() {
	cli.Execute()
}
