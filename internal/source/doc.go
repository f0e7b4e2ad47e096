// Package source holds what the platform adapters share: window-to-page
// mapping with retries, code table lookup and DOM text helpers.
package source
