package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency        = metric.NewHistogram("1m1s")
	AdvertisementsSent     = metric.NewCounter("10s1s")
	AdvertisementsReceived = metric.NewCounter("10s1s")
	PacketsForwarded       = metric.NewCounter("10s1s")
	PacketsDropped         = metric.NewCounter("10s1s")
	PacketsDelivered       = metric.NewCounter("10s1s")
	PacketsLooped          = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("dvsim:AdvertisementsSent/s", AdvertisementsSent)
	expvar.Publish("dvsim:AdvertisementsReceived/s", AdvertisementsReceived)
	expvar.Publish("dvsim:PacketsForwarded/s", PacketsForwarded)
	expvar.Publish("dvsim:PacketsDropped/s", PacketsDropped)
	expvar.Publish("dvsim:PacketsDelivered/s", PacketsDelivered)
	expvar.Publish("dvsim:PacketsLooped/s", PacketsLooped)
	expvar.Publish("dvsim:DispatchLatency (µs)", DispatchLatency)
}
