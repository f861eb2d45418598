package api

// Options holds the resolved configuration shared by the operators.
type Options struct {
	// Observer receives lifecycle callbacks. Defaults to NoopObserver.
	Observer Observer
}

// Option configures an operator.
type Option func(*Options)

// WithObserver attaches an Observer to an operator. Passing nil is
// equivalent to not passing the option at all.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		if obs != nil {
			o.Observer = obs
		}
	}
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{Observer: NoopObserver{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
