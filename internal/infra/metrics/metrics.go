package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type Counters struct {
	ChainsStarted       uint64
	Resubmissions       uint64
	ChainsCompleted     uint64
	ChainsAborted       uint64
	ChainsSuperseded    uint64
	ChainsGatewayFailed uint64
	ChainsTimedOut      uint64
	Confirmations       uint64
	FollowUpCharges     uint64
	GatewayErrors       uint64
}

func (c *Counters) IncStarted() {
	atomic.AddUint64(&c.ChainsStarted, 1)
}

func (c *Counters) IncResubmitted() {
	atomic.AddUint64(&c.Resubmissions, 1)
}

func (c *Counters) IncConfirmed() {
	atomic.AddUint64(&c.Confirmations, 1)
}

func (c *Counters) IncFollowUpCharged() {
	atomic.AddUint64(&c.FollowUpCharges, 1)
}

func (c *Counters) IncGatewayError() {
	atomic.AddUint64(&c.GatewayErrors, 1)
}

// IncFinished counts a chain that reached a terminal state. Unknown states
// are ignored.
func (c *Counters) IncFinished(state string) {
	if p := c.finishedCounter(state); p != nil {
		atomic.AddUint64(p, 1)
	}
}

func (c *Counters) Finished(state string) uint64 {
	if p := c.finishedCounter(state); p != nil {
		return atomic.LoadUint64(p)
	}
	return 0
}

func (c *Counters) finishedCounter(state string) *uint64 {
	switch state {
	case "COMPLETED":
		return &c.ChainsCompleted
	case "ABORTED":
		return &c.ChainsAborted
	case "SUPERSEDED":
		return &c.ChainsSuperseded
	case "GATEWAY_ERROR":
		return &c.ChainsGatewayFailed
	case "TIMED_OUT":
		return &c.ChainsTimedOut
	}
	return nil
}

var (
	descStarted = prometheus.NewDesc(
		"tipbot_chains_started_total",
		"Resubmission chains started.",
		nil, nil,
	)
	descResubmissions = prometheus.NewDesc(
		"tipbot_checkout_resubmissions_total",
		"Stalled checkouts cancelled and recreated.",
		nil, nil,
	)
	descFinished = prometheus.NewDesc(
		"tipbot_chains_finished_total",
		"Resubmission chains by terminal state.",
		[]string{"state"}, nil,
	)
	descConfirmations = prometheus.NewDesc(
		"tipbot_confirmations_total",
		"Completed checkouts confirmed by notification.",
		nil, nil,
	)
	descFollowUps = prometheus.NewDesc(
		"tipbot_follow_up_charges_total",
		"Follow-up charges issued after a confirmation.",
		nil, nil,
	)
	descGatewayErrors = prometheus.NewDesc(
		"tipbot_gateway_errors_total",
		"Failed calls to the terminal API.",
		nil, nil,
	)
)

var finishedStates = []string{"COMPLETED", "ABORTED", "SUPERSEDED", "GATEWAY_ERROR", "TIMED_OUT"}

func (c *Counters) Describe(ch chan<- *prometheus.Desc) {
	ch <- descStarted
	ch <- descResubmissions
	ch <- descFinished
	ch <- descConfirmations
	ch <- descFollowUps
	ch <- descGatewayErrors
}

func (c *Counters) Collect(ch chan<- prometheus.Metric) {
	counter := func(desc *prometheus.Desc, v *uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(atomic.LoadUint64(v)), labels...)
	}
	counter(descStarted, &c.ChainsStarted)
	counter(descResubmissions, &c.Resubmissions)
	for _, state := range finishedStates {
		counter(descFinished, c.finishedCounter(state), state)
	}
	counter(descConfirmations, &c.Confirmations)
	counter(descFollowUps, &c.FollowUpCharges)
	counter(descGatewayErrors, &c.GatewayErrors)
}
