package models

// Game is the common record shape every source adapter maps into.
// It only lives in memory for the duration of one sync run.
type Game struct {
	Name      string `json:"name"`
	URL       string `json:"url"`       // download / resource location
	Thumbnail string `json:"thumbnail"` // box art or screenshot location
	System    string `json:"system"`    // platform tag, e.g. "nes", "snes", "gba"
	Category  string `json:"category"`  // genre tag
	Source    string `json:"source"`    // provenance label of the adapter that produced it
}

// GameDoc is a Game as stored in the document collection.
// ID is the opaque storage identifier assigned on insert.
type GameDoc struct {
	ID string `json:"id"`
	Game
}
