// Package pkgerror defines the structured Error carried from the ingestion
// usecases to the HTTP edge.
//
// An Error holds the wrapped cause, a client safe message, a Type that maps to
// an HTTP status and a Code for machine readable classification such as
// invalid file format or missing columns.
package pkgerror
