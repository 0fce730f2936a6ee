// Package pkguid generates identifiers: UUID strings for ingestion runs and
// correlation IDs, Snowflake numbers for stored records.
package pkguid
