// Package archive defines the codec contract shared by all container
// formats and the registry that selects among them.
//
// Password handling:
//   - codecs implementing NativePassword receive the password as-is
//   - every other codec is wrapped in Sealed, which runs the crypto
//     envelope after Compress and before Decompress
//
// Detect tries formats in DetectOrder (zip, 7z, tar.zst, tar.lz4, lat,
// paqg) and keeps the first success. Failed attempts are discarded.
package archive
