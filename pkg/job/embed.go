package job

import "embed"

// builtinJobsFS embeds the built-in jobs directory.
//
//go:embed jobs/*.yml
var builtinJobsFS embed.FS
