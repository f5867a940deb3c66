// Package console adapts the tracking session to a terminal: line input
// shared between commands and prompts, the persistent indicator rendered
// as output lines, and a permission gate answered by flag or by prompt.
package console
