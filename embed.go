// Package geopulse embeds the static dashboard assets compiled into the
// server binary. Dev mode serves the same files from disk instead so
// edits show up without a rebuild.
package geopulse

import "embed"

//go:embed static
var StaticFiles embed.FS
