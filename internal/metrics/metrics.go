// Package metrics exposes prometheus counters for the external model calls,
// which are the only expensive and failure-prone operations in the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts receipt extraction attempts by outcome
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabsplit_scans_total",
		Help: "Receipt extraction attempts by outcome.",
	}, []string{"outcome"})

	// CommandsTotal counts chat command interpretations by outcome
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabsplit_commands_total",
		Help: "Chat command interpretations by outcome.",
	}, []string{"outcome"})

	// AuditsTotal counts audit report generations by outcome
	AuditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabsplit_audits_total",
		Help: "Audit report generations by outcome.",
	}, []string{"outcome"})
)

// Outcome label values
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
