// Package gateway is the HTTP front end of the coordinator. It parses
// requests, calls the coordinator and maps its results and errors to JSON
// responses and status codes.
package gateway
