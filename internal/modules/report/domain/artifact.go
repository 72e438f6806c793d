package domain

import (
	"path"
	"strings"
	"time"
)

// Artifact is a rendered report.
type Artifact struct {
	Format      string
	Extension   string
	ContentType string
	Body        []byte
}

// ArchiveKey is the storage key of an artifact:
// <prefix>/<yyyy>/<mm>/<session-id>/<params-key>.<ext>
func ArchiveKey(prefix string, processDate time.Time, sessionID, paramsKey, ext string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "reports"
	}
	return path.Join(
		prefix,
		processDate.UTC().Format("2006"),
		processDate.UTC().Format("01"),
		sessionID,
		paramsKey+"."+strings.TrimPrefix(ext, "."),
	)
}

// Inspection is text read back from a rendered PDF.
type Inspection struct {
	Pages    int
	Text     string
	TotalF0  float64
	HasTotal bool
	Verdict  string
}
