// Package ingest holds the source adapters that convert raw artifacts
// into normalised evidence records: one adapter per source kind
// (chat export, extracted PDF, provider email). Adapters recover from
// per-item parse failures and report them; only an undecodable
// artifact fails the whole ingestion.
package ingest
