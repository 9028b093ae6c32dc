// Package sanitizer normalizes user input before it is validated and stored.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input is passed through or emptied rather than
// reported, and validation decides whether the result is acceptable.
//
// Normalization includes:
//   - Emails: trimmed and lower-cased, since identity lookup is case-insensitive
//   - Names and labs: whitespace collapsed and trimmed
//   - Notes: trimmed, line breaks kept
//   - Hosts: trimmed and lower-cased
package sanitizer
