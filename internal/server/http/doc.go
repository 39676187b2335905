// Package httpserver is the admin HTTP surface of cmdlog.
//
// Routes:
//
//	GET /v1/healthz                     store (and archive) health
//	GET /v1/log                         the whole log as text
//	GET /v1/entries?filter=<cel>        live entries as JSON
//	GET /v1/read?write_cmd=N&offset=M   content from a SEEK_TO position
//	GET /v1/archive?limit=&start=&reverse=&filter=
//	GET /metrics                        when a metrics handler is supplied
package httpserver
