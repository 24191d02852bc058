package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamemaster_turns_total",
			Help: "Total number of processed turns by outcome.",
		},
		[]string{"outcome"}, // completed, death, rejected_relevance, rejected_realism, dead_session
	)
	damageDealt = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gamemaster_damage_dealt",
			Help:    "Histogram of non-zero damage magnitudes.",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		},
	)
	promptTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gamemaster_prompt_tokens",
			Help:    "Histogram of transcript token counts submitted for narrative replies.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
	)
)
