package advisor

import (
	"time"

	"github.com/okian/formacao/pkg/logger"
)

// Option applies a configuration option to the Advisor.
type Option func(*Advisor)

// WithFactory replaces the Gemini completer factory.
func WithFactory(f Factory) Option {
	return func(a *Advisor) {
		if f != nil {
			a.factory = f
		}
	}
}

// WithModel selects the Gemini model for the default factory.
func WithModel(model string) Option {
	return func(a *Advisor) {
		a.factory = NewGenAIFactory(model)
	}
}

// WithTimeout bounds each external call.
func WithTimeout(d time.Duration) Option {
	return func(a *Advisor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithCategories sets the labels Classify may answer with and the fallback label.
func WithCategories(categories []string, fallback string) Option {
	return func(a *Advisor) {
		if len(categories) > 0 {
			a.categories = categories
		}
		if fallback != "" {
			a.fallback = fallback
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Advisor) {
		if l != nil {
			a.logger = l
		}
	}
}
