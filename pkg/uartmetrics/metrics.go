package uartmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Device link
	rxBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uartdbg_rx_bytes_total",
		Help: "Bytes received from the device",
	})

	txBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uartdbg_tx_bytes_total",
		Help: "Bytes written to the device",
	})

	txErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uartdbg_tx_errors_total",
		Help: "Device writes that failed",
	})

	txDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uartdbg_tx_dropped_total",
		Help: "Transmit requests refused because the write queue was full",
	})

	linkConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uartdbg_link_connected",
		Help: "1 while a device link is open",
	})

	linkLostTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uartdbg_link_lost_total",
		Help: "Reader loops ended by a device error",
	})

	// Panels
	panelEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uartdbg_panel_events_total",
		Help: "Panel events published",
	}, []string{"type"})

	panelEventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uartdbg_panel_events_dropped_total",
		Help: "Oldest panel events discarded because the event queue was full",
	})

	panelsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uartdbg_panels",
		Help: "Panels currently in the registry",
	})

	// Scripts
	scriptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uartdbg_scripts_total",
		Help: "Script runs by result",
	}, []string{"result"})

	scriptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uartdbg_script_duration_seconds",
		Help:    "Script run time",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
	})

	// Firmware
	flashBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uartdbg_flash_blocks_total",
		Help: "Firmware blocks queued for transmit",
	})
)

func RecordRx(n int) {
	rxBytesTotal.Add(float64(n))
}

func RecordTx(n int) {
	txBytesTotal.Add(float64(n))
}

func RecordTxError() {
	txErrorsTotal.Inc()
}

func RecordTxDropped() {
	txDroppedTotal.Inc()
}

func SetConnected(connected bool) {
	if connected {
		linkConnected.Set(1)
		return
	}
	linkConnected.Set(0)
}

func RecordLinkLost() {
	linkLostTotal.Inc()
}

// RecordPanelEvent counts one published event of the given type name
func RecordPanelEvent(eventType string) {
	panelEventsTotal.WithLabelValues(eventType).Inc()
}

func RecordPanelEventDropped() {
	panelEventsDroppedTotal.Inc()
}

func SetPanels(n int) {
	panelsActive.Set(float64(n))
}

// RecordScript records one finished run. result is "ok", "error" or "timeout".
func RecordScript(result string, d time.Duration) {
	scriptsTotal.WithLabelValues(result).Inc()
	scriptDuration.Observe(d.Seconds())
}

func RecordFlashBlock() {
	flashBlocksTotal.Inc()
}
