package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DBPoolStats is a point-in-time view of a database connection pool. Acquire
// counts and wait time are cumulative since the pool was opened.
type DBPoolStats struct {
	Total    int32
	Idle     int32
	Acquired int32
	Max      int32

	Acquires      int64
	EmptyAcquires int64
	AcquireWait   time.Duration
}

// DBPoolStatFunc returns pool statistics without importing a driver package.
type DBPoolStatFunc func() DBPoolStats

type dbPoolCollector struct {
	statFunc DBPoolStatFunc

	totalDesc         *prometheus.Desc
	idleDesc          *prometheus.Desc
	acquiredDesc      *prometheus.Desc
	maxDesc           *prometheus.Desc
	acquiresDesc      *prometheus.Desc
	emptyAcquiresDesc *prometheus.Desc
	waitDesc          *prometheus.Desc
}

// NewDBPoolCollector creates a collector exposing pool gauges and acquire
// counters, labelled with the storage driver.
func NewDBPoolCollector(driver string, statFunc DBPoolStatFunc) prometheus.Collector {
	labels := prometheus.Labels{"driver": driver}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("sportsbro_db_pool_"+name, help, nil, labels)
	}
	return &dbPoolCollector{
		statFunc:          statFunc,
		totalDesc:         desc("total_conns", "Total number of connections in the DB pool."),
		idleDesc:          desc("idle_conns", "Number of idle connections in the DB pool."),
		acquiredDesc:      desc("acquired_conns", "Number of connections currently checked out."),
		maxDesc:           desc("max_conns", "Maximum size of the DB pool."),
		acquiresDesc:      desc("acquires_total", "Connections acquired from the pool."),
		emptyAcquiresDesc: desc("empty_acquires_total", "Acquires that had to wait because no idle connection was available."),
		waitDesc:          desc("acquire_wait_seconds_total", "Time spent waiting to acquire connections."),
	}
}

func (c *dbPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalDesc
	ch <- c.idleDesc
	ch <- c.acquiredDesc
	ch <- c.maxDesc
	ch <- c.acquiresDesc
	ch <- c.emptyAcquiresDesc
	ch <- c.waitDesc
}

func (c *dbPoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.statFunc()
	gauge := func(d *prometheus.Desc, v int32) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	gauge(c.totalDesc, s.Total)
	gauge(c.idleDesc, s.Idle)
	gauge(c.acquiredDesc, s.Acquired)
	gauge(c.maxDesc, s.Max)
	ch <- prometheus.MustNewConstMetric(c.acquiresDesc, prometheus.CounterValue, float64(s.Acquires))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquiresDesc, prometheus.CounterValue, float64(s.EmptyAcquires))
	ch <- prometheus.MustNewConstMetric(c.waitDesc, prometheus.CounterValue, s.AcquireWait.Seconds())
}
