// Package rag is the retrieval pipeline facade: ingestion of documents and
// conversation messages, owner-scoped retrieval with a brute-force fallback,
// hybrid lexical+semantic fusion, re-ranking, and token-budgeted context
// synthesis.
//
// Every chunk written through this package carries an owner identity in its
// metadata, and every retrieval path filters on it. Content ingested by one
// owner is never visible to another, including through the fallback and
// advanced paths.
//
// The package is a library boundary, not a service. Callers construct one
// Service with their stores and embedder and use it as the single entry
// point. Retrieval degrades rather than fails; ingestion reports failures
// as structured results.
package rag
