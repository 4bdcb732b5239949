package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDocument     = "document"
	KeyTemplate     = "template"
	KeyOutput       = "output"
	KeyDurationMS   = "duration_ms"
	KeySubscriberID = "subscriber_id"
	KeySubscribers  = "subscribers"
	KeyAddr         = "addr"
	KeyFingerprint  = "fingerprint"
	KeyError        = "error"
	KeyPath         = "path"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Document(path string) slog.Attr   { return slog.String(KeyDocument, path) }
func Template(name string) slog.Attr   { return slog.String(KeyTemplate, name) }
func Output(path string) slog.Attr     { return slog.String(KeyOutput, path) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func SubscriberID(id string) slog.Attr { return slog.String(KeySubscriberID, id) }
func Subscribers(n int) slog.Attr      { return slog.Int(KeySubscribers, n) }
func Addr(addr string) slog.Attr       { return slog.String(KeyAddr, addr) }
func Fingerprint(fp string) slog.Attr  { return slog.String(KeyFingerprint, fp) }
func Path(path string) slog.Attr       { return slog.String(KeyPath, path) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
