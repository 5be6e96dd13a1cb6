// Package mockapi serves synthetic infrastructure-monitoring data over HTTP
// for local runs and tests.
//
// Routes:
//
//	GET  /metrics                 cluster-wide resource usage
//	GET  /services                status of the configured services
//	GET  /alerts                  five recent alerts
//	GET  /performance             24 hourly CPU, memory and network points
//	POST /alerts/{id}/acknowledge acknowledge an alert, optionally guarded
//	POST /auth/login              credential check, when a directory is attached
//
// Responses can be delayed and failed at random to exercise client retry
// and fallback paths.
package mockapi
