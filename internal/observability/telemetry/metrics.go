package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2gsim_messages_published_total",
		Help: "Messages published to the bus, by process and message type",
	}, []string{"process", "type"})

	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2gsim_messages_received_total",
		Help: "Messages received from the bus, by process and message type",
	}, []string{"process", "type"})

	EpochsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "v2gsim_epochs_completed_total",
		Help: "Epochs a process has signalled ready for",
	}, []string{"process"})

	AllocatedPower = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "v2gsim_allocated_power_kw",
		Help: "Total charging power allocated by the controller in the latest epoch",
	})

	DischargeDirectives = promauto.NewCounter(prometheus.CounterOpts{
		Name: "v2gsim_discharge_directives_total",
		Help: "Discharge directives issued by the controller",
	})
)
