package config

import (
	"time"

	"github.com/ncruces/go-strftime"
)

// ParseDate parses value with the configured input pattern.
func (d DateConfig) ParseDate(value string) (time.Time, error) {
	return strftime.Parse(d.Input, value)
}

// FormatDate formats t with the configured output pattern.
func (d DateConfig) FormatDate(t time.Time) string {
	return strftime.Format(d.Output, t)
}
