// Package observability provides logger construction for the gateway.
package observability
