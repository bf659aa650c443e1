// Package search builds note search predicates in the collection's search
// syntax. A Query is a conjunction of notetype and field terms; field terms
// carry wildcard patterns where "*" matches any run of characters, "_"
// matches a single character and a backslash makes the next character
// literal. The same Query can be rendered as a search string, matched
// against a note in memory, or translated into SQL by a store.
package search
