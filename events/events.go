package events

import (
	"github.com/ethereum/go-ethereum/event"
)

// BandEvent describes a band lifecycle transition.
type BandEvent struct {
	// Session identifies the map instance.
	Session string
	Band    string
	State   string

	// Features is the number of features loaded, when State is loaded.
	Features int
	Markers  int

	// Err is set for failed fetches.
	Err error
}

// BandFeed is emitted for every band state transition
// (loading, loaded, failed) in every session.
// Subscribers must drain their channel; sends block on slow readers.
var BandFeed = event.FeedOf[BandEvent]{}
