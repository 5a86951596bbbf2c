// Package i2cmetrics provides a Prometheus collector over the counters of a
// bit-banged I2C bus.
package i2cmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oxplot/go-bbi2c/master"
)

// Source is anything that reports session counters, such as a
// master.Session or an i2cbus.Bus.
type Source interface {
	Stats() master.Stats
}

type counter struct {
	desc  *prometheus.Desc
	value func(master.Stats) uint64
}

// Collector exports the counters of one bus. The values are read from the
// source on every scrape.
type Collector struct {
	src      Source
	counters []counter
	buffered *prometheus.Desc
}

// NewCollector creates a collector for src. Every metric carries a "bus"
// label set to bus.
func NewCollector(bus string, src Source) *Collector {
	labels := prometheus.Labels{"bus": bus}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("bbi2c", "", name), help, nil, labels)
	}
	return &Collector{
		src: src,
		counters: []counter{
			{desc("transactions_total", "Start conditions sent"),
				func(s master.Stats) uint64 { return s.Transactions }},
			{desc("bytes_written_total", "Bytes shifted out, address bytes included"),
				func(s master.Stats) uint64 { return s.BytesWritten }},
			{desc("nacks_total", "Bytes shifted out and not acknowledged"),
				func(s master.Stats) uint64 { return s.NACKs }},
			{desc("bytes_read_total", "Bytes shifted in"),
				func(s master.Stats) uint64 { return s.BytesRead }},
			{desc("stretch_timeouts_total", "Reads abandoned on clock stretch timeout"),
				func(s master.Stats) uint64 { return s.StretchTimeouts }},
			{desc("rx_overflows_total", "Read requests rejected for lack of buffer space"),
				func(s master.Stats) uint64 { return s.Overflows }},
			{desc("rx_underflows_total", "Buffered reads with nothing buffered"),
				func(s master.Stats) uint64 { return s.Underflows }},
		},
		buffered: desc("rx_buffered_bytes", "Received bytes not yet read"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.counters {
		ch <- m.desc
	}
	ch <- c.buffered
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	for _, m := range c.counters {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, float64(m.value(st)))
	}
	ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(st.Buffered))
}

var _ prometheus.Collector = (*Collector)(nil)
