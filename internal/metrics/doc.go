// Package metrics provides build and refresh-service metrics behind a Recorder
// interface.
//
// Components default to NoopRecorder and never check for nil. The CLI swaps in
// a PrometheusRecorder when metrics are exposed:
//
//	reg := prometheus.NewRegistry()
//	recorder := metrics.NewPrometheusRecorder(reg)
//	svc := build.NewService().WithRecorder(recorder)
//	mux.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
