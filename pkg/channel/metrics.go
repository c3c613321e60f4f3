package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pairsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shmtask",
		Subsystem: "channel",
		Name:      "pairs_created_total",
		Help:      "Channel pairs created by this process.",
	})
	regionsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shmtask",
		Subsystem: "channel",
		Name:      "regions_released_total",
		Help:      "Shared regions whose interprocess count this process drove to zero.",
	})
	bytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shmtask",
		Subsystem: "channel",
		Name:      "bytes_sent_total",
		Help:      "Payload bytes deposited in shared memory by sends.",
	})
	bytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shmtask",
		Subsystem: "channel",
		Name:      "bytes_received_total",
		Help:      "Payload bytes copied out of shared memory by receives.",
	})
	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shmtask",
		Subsystem: "channel",
		Name:      "frames_sent_total",
		Help:      "Control frames written to the socket.",
	})
	framesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shmtask",
		Subsystem: "channel",
		Name:      "frames_received_total",
		Help:      "Control frames read from the socket.",
	})
)
