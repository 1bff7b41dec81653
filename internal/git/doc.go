// Package git checks whether files decrypted from an archive sit in a
// git work tree where they could be committed by accident.
//
// It reports:
//   - Files already tracked by git
//   - Files neither tracked nor covered by .gitignore
package git
