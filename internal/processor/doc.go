// Package processor contains the operations behind the command-line
// interface. It opens the Anki collection, builds the neighbor resolver,
// player and add-on host on first use, and renders results as text, JSON
// or YAML. This package is the coordinator between all other components.
package processor
