package exchange

// Option tunes a single GetOrderBook call.
type Option func(*Options)

type Options struct {
	// Limit is the number of levels per side to request. Zero leaves the
	// venue default, and the feed's MaxDepth still caps the result.
	Limit int
}

func WithLimit(limit int) Option {
	return func(o *Options) { o.Limit = limit }
}

func ApplyOptions(opts ...Option) *Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return &o
}
