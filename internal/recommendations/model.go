package recommendations

import "time"

// Item is one recommended movie. Every field is free text; Year is text too.
type Item struct {
	Title    string `json:"title" bson:"title"`
	Year     string `json:"year" bson:"year"`
	Director string `json:"director" bson:"director"`
	Genre    string `json:"genre" bson:"genre"`
	Reason   string `json:"reason" bson:"reason"`
}

// Record is a list of recommendations for one query.
//
// ID is assigned when the record is saved; fresh model results have none.
// Cached is set when the record was served from the store and is never persisted.
type Record struct {
	ID        string    `json:"id,omitempty"`
	Query     string    `json:"query"`
	Items     []Item    `json:"recommendations"`
	CreatedAt time.Time `json:"createdAt"`
	Cached    bool      `json:"cached"`
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
