package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyUID        = "uid"
	KeyFile       = "file"
	KeyMoniker    = "moniker"
	KeyToc        = "toc"
	KeyHref       = "href"
	KeySource     = "source"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyBuildID    = "build_id"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func UID(uid string) slog.Attr        { return slog.String(KeyUID, uid) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Moniker(m string) slog.Attr      { return slog.String(KeyMoniker, m) }
func Toc(f string) slog.Attr          { return slog.String(KeyToc, f) }
func Href(h string) slog.Attr         { return slog.String(KeyHref, h) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
