package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedirectsTotal counts hot-path resolutions by outcome
// (redirect, not_found, error).
var RedirectsTotal = promauto.NewCounterVec(prom.CounterOpts{
	Name: "linkfan_redirects_total",
	Help: "Redirect resolutions by outcome.",
}, []string{"outcome"})

// ConversionReportsTotal counts conversion reports by outcome.
var ConversionReportsTotal = promauto.NewCounterVec(prom.CounterOpts{
	Name: "linkfan_conversion_reports_total",
	Help: "Conversion reports by outcome.",
}, []string{"outcome"})
