package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Alonza0314/free-rnc/rnc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RncEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rnc_events_total",
			Help: "RRC, RAB and handover events by cause",
		},
		[]string{"simulationId", "rncId", "event", "cause"},
	)

	CellRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rnc_cell_allocated_bps",
			Help: "Bit rate allocated in a cell by direction",
		},
		[]string{"simulationId", "rncId", "cellId", "direction"},
	)
)

func init() {
	prometheus.MustRegister(RncEvents, CellRate)
}

// PromRecorder exports the events of every RNC of one simulation run.
type PromRecorder struct {
	simId string
}

func NewPromRecorder(simId string) *PromRecorder {
	return &PromRecorder{simId: simId}
}

func (p *PromRecorder) GetSimId() string {
	return p.simId
}

func (p *PromRecorder) RecordEvent(rncId rnc.RncId, ueId rnc.UeId, cellId rnc.CellId, event rnc.Event, cause rnc.Cause) {
	RncEvents.WithLabelValues(p.simId, formatId(uint32(rncId)), string(event), cause.String()).Inc()
}

func (p *PromRecorder) RecordCellLoad(rncId rnc.RncId, cellId rnc.CellId, ulRate float64, dlRate float64, sharedRate float64) {
	rncLabel, cellLabel := formatId(uint32(rncId)), formatId(uint32(cellId))
	CellRate.WithLabelValues(p.simId, rncLabel, cellLabel, "ul").Set(ulRate)
	CellRate.WithLabelValues(p.simId, rncLabel, cellLabel, "dl").Set(dlRate)
	CellRate.WithLabelValues(p.simId, rncLabel, cellLabel, "shared").Set(sharedRate)
}

func formatId(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// StartMetricsServer serves /metrics on port until the returned server is
// shut down. Listen errors are delivered on errCh.
func StartMetricsServer(port int, errCh chan<- error) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		defer close(errCh)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("Error serving metrics on port %d: %v", port, err)
		}
	}()
	return server
}
