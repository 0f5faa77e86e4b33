package models

// UserInfo is the server-confirmed session identity sent in the
// connected_user_info handshake event. Immutable for the connection
// lifetime.
type UserInfo struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Specialty string `bson:"specialty" json:"specialty"`
}

// Patient is the minimal patient record exposed to search.
type Patient struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
}
