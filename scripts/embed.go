// Package scripts embeds the Risor report scripts shipped with scarpetls.
package scripts

import "embed"

// FS holds report.risor and the reports/ directory.
//
//go:embed report.risor reports/*.risor
var FS embed.FS
