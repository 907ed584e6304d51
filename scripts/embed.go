// Package scripts embeds the built-in diagnostic rule scripts.
package scripts

import "embed"

//go:embed rules/*.risor
var FS embed.FS
