package client

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	// distMS holds the latency buckets in milliseconds. A value falls in the
	// first bucket whose bound is greater than it.
	distMS = view.Distribution(0, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 20000)

	measureLatency = stats.Int64("lambda_client_latency", "the latency of operations by the lambda HTTP client", stats.UnitMilliseconds)
	measureSize    = stats.Int64("lambda_client_response_size", "the size of response bodies", stats.UnitBytes)

	keyOperation  = tag.MustNewKey("operation")
	keyHost       = tag.MustNewKey("host")
	keyStatusCode = tag.MustNewKey("code")
	keyError      = tag.MustNewKey("error")
	keyMediaType  = tag.MustNewKey("mediatype")

	ViewLatency = &view.View{
		Measure:     measureLatency,
		Aggregation: distMS,
		TagKeys:     []tag.Key{keyOperation, keyHost, keyStatusCode, keyError},
	}
	ViewSize = &view.View{
		Measure:     measureSize,
		Aggregation: view.Distribution(0, 16, 256, 4096, 65536, 1<<20),
		TagKeys:     []tag.Key{keyOperation, keyHost, keyMediaType},
	}

	OpenCensusViews = []*view.View{
		ViewLatency,
		ViewSize,
	}
)

type measurement struct {
	mediaType  string
	operation  string
	err        error
	latency    time.Duration
	statusCode int
	host       string
	size       int
}

func (m measurement) record(ctx context.Context) {
	muts := []tag.Mutator{
		tag.Upsert(keyHost, m.host),
		tag.Upsert(keyOperation, m.operation),
		tag.Upsert(keyStatusCode, strconv.Itoa(m.statusCode)),
		tag.Upsert(keyError, metricsErrStr(m.err)),
		tag.Upsert(keyMediaType, m.mediaType),
	}
	stats.RecordWithTags(ctx, muts, measureLatency.M(m.latency.Milliseconds()))
	stats.RecordWithTags(ctx, muts, measureSize.M(int64(m.size)))
}

func newMeasurement(operation string) *measurement {
	return &measurement{
		operation: operation,
		host:      "None",
		mediaType: "None",
	}
}

// metricsErrStr maps an error to a label value. The set of values is fixed to
// keep the label cardinality low.
func metricsErrStr(err error) string {
	if err == nil {
		return "None"
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return "HTTP"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "DeadlineExceeded"
	}
	if errors.Is(err, context.Canceled) {
		return "Canceled"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "NetTimeout"
		}
		return "Net"
	}
	return "Other"
}
