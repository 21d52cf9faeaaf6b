package store

// MediaType is the physical or digital format an album is stocked in.
type MediaType string

const (
	MediaTypeVinyl    MediaType = "VINYL"
	MediaTypeCD       MediaType = "CD"
	MediaTypeCassette MediaType = "CASSETTE"
	MediaTypeDigital  MediaType = "DIGITAL"
)

// Album models a catalog record. An album without an ID has not been persisted yet.
type Album struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	Title      string    `json:"title" bson:"title"`
	ArtistName string    `json:"artistName" bson:"artistName"`
	Type       MediaType `json:"type" bson:"type"`
	Stock      int       `json:"stock" bson:"stock"`
	Cover      []byte    `json:"cover,omitempty" bson:"cover,omitempty"`
}

// Transient reports whether the album has no store-assigned identifier yet.
func (a Album) Transient() bool {
	return a.ID == ""
}

// Clone returns a copy that shares no memory with a.
func (a Album) Clone() Album {
	if a.Cover != nil {
		cover := make([]byte, len(a.Cover))
		copy(cover, a.Cover)
		a.Cover = cover
	}
	return a
}
