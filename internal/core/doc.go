// Package core provides the gpucompress archive operations.
//
// Core operations include:
//   - Compress: Collect files and directories and write an archive
//   - Extract: Decode an archive (sniffing the format if needed) into a directory
//   - List/Verify: Inspect entries and check them against the catalog manifest
//   - Diff: Compare archive entries with files on disk
//   - SealFile/UnsealFile/Rekey: Work with the password envelope directly
//
// Conflict resolution during extract supports multiple strategies:
//   - Keep local version
//   - Overwrite with the archive version
//   - Edit merged (opens $EDITOR with git-style conflict markers)
//   - Keep both (saves the archive version as .from-archive)
package core
