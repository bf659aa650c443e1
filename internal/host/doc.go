// Package host connects the neighbor resolver to the review screen's
// message bridge: it handles the messages a card's web view sends and
// pushes resolved neighbors back to the view. An Addon is built once at
// startup and passed to every caller that needs it.
package host
