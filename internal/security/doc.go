// Package security validates archive entry names and confines extraction
// to a destination directory.
package security
