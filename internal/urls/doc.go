// Package urls holds the external documentation links shown in hints and
// troubleshooting output.
//
// Usage:
//
//	import "github.com/muurk/feathertrace/internal/urls"
//
//	fmt.Printf("Install bossac: %s\n", urls.BOSSA)
package urls
