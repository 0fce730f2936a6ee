// Package pkgrouter is the HTTP layer of the service: an httprouter based
// router whose handlers return (any, error), rendered as a JSON envelope or a
// {message} error body. Streaming handlers are mounted with Handle and keep
// http.Flusher through every middleware (recovery, correlation ID, logging).
package pkgrouter
