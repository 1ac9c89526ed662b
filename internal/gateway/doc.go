// Package gateway is the HTTP front of the application. It owns the ordered
// route table and dispatches every request to exactly one behavior:
//
//	/health                  fixed JSON liveness document
//	/api, /emergency-hospitals, /ambulance
//	                         forwarded verbatim to the upstream
//	/ (GET, HEAD)            the entry page
//	anything else            static lookup, then 404
//
// Routes are matched in registration order and the first match wins.
package gateway
