// Package metrics exposes presenter activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quote_presenter"

// Result label values.
const (
	resultOK       = "ok"
	resultFailed   = "failed"
	resultLoaded   = "loaded"
	resultFallback = "fallback"
)

// Presenter records presenter and session events. It implements
// app.SessionObserver.
type Presenter struct {
	quotesShown    prometheus.Counter
	likes          prometheus.Counter
	copies         *prometheus.CounterVec
	backgrounds    *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// NewPresenter registers the presenter collectors with reg. Pass
// prometheus.DefaultRegisterer to serve them from promhttp.Handler.
func NewPresenter(reg prometheus.Registerer) *Presenter {
	f := promauto.With(reg)

	return &Presenter{
		quotesShown: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_shown_total",
			Help:      "Quotes displayed by NextQuote.",
		}),
		likes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_total",
			Help:      "Accepted likes.",
		}),
		copies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copies_total",
			Help:      "Clipboard copies by result.",
		}, []string{"result"}),
		backgrounds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backgrounds_total",
			Help:      "Background images applied, loaded or fallback.",
		}, []string{"result"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Live presenter sessions.",
		}),
	}
}

// QuoteShown implements app.Observer.
func (p *Presenter) QuoteShown() {
	p.quotesShown.Inc()
}

// Liked implements app.Observer.
func (p *Presenter) Liked() {
	p.likes.Inc()
}

// CopyFinished implements app.Observer.
func (p *Presenter) CopyFinished(err error) {
	result := resultOK
	if err != nil {
		result = resultFailed
	}
	p.copies.WithLabelValues(result).Inc()
}

// BackgroundApplied implements app.Observer.
func (p *Presenter) BackgroundApplied(fallback bool) {
	result := resultLoaded
	if fallback {
		result = resultFallback
	}
	p.backgrounds.WithLabelValues(result).Inc()
}

// SessionsActive implements app.SessionObserver.
func (p *Presenter) SessionsActive(n int) {
	p.activeSessions.Set(float64(n))
}
