// Package storage provides the BBolt catalog of archives written by
// gpucompress.
//
// Database structure uses three buckets:
//   - config: catalog version and timestamps
//   - archives: record ID to CBOR-encoded Record
//   - paths: absolute archive path to record ID
//
// A Record holds the archive's format, whether it is enveloped, and a
// manifest of entry names, sizes and BLAKE3 hashes. The catalog never
// stores entry contents or passwords, so history and verify work without
// unlocking anything.
package storage
