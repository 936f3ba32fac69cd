package templates

import "embed"

// FS contains the mail templates embedded in the binary.
//
//go:embed mail
var FS embed.FS
