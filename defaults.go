package boss

import "github.com/klauspost/compress/flate"

const (
	defaultMaxDepth = 1024

	// encoded inner streams up to this size are stored without compression
	compressThreshold = 160

	tierRaw     = 0
	tierDeflate = 1
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func (o Options) withDefaults() Options {
	o.Logger = coalesce[Logger](o.Logger, NopLogger{})
	o.MaxDepth = coalesce(o.MaxDepth, defaultMaxDepth)
	o.CompressionLevel = coalesce(o.CompressionLevel, flate.DefaultCompression)
	return o
}
