package domain

import "time"

// City is one leg of the trip. Each city has its own rooming plan.
type City string

const (
	CityMakkah  City = "Makkah"
	CityMadinah City = "Madinah"
)

// Cities lists every rooming plan.
var Cities = []City{CityMakkah, CityMadinah}

func (c City) Valid() bool {
	return c == CityMakkah || c == CityMadinah
}

// RoomType determines how many pilgrims a room houses.
type RoomType string

const (
	RoomDouble RoomType = "Double"
	RoomTriple RoomType = "Triple"
	RoomQuad   RoomType = "Quad"
	RoomQuint  RoomType = "Quint"
)

var roomCapacity = map[RoomType]int{
	RoomDouble: 2,
	RoomTriple: 3,
	RoomQuad:   4,
	RoomQuint:  5,
}

func (t RoomType) Valid() bool {
	_, ok := roomCapacity[t]
	return ok
}

// Capacity is the fixed seat count for the type, or 0 for an unknown type.
func (t RoomType) Capacity() int {
	return roomCapacity[t]
}

// Room is a hotel room in one city's rooming plan.
// Capacity always equals Type.Capacity(); use SetType to change both.
type Room struct {
	ID          string       `json:"id"`
	HotelName   string       `json:"hotelName"`
	City        City         `json:"city"`
	Type        RoomType     `json:"type"`
	Capacity    int          `json:"capacity"`
	FloorNumber *int         `json:"floorNumber,omitempty"`
	RoomNumber  string       `json:"roomNumber,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	Assignments []Assignment `json:"assignments"`
}

// SetType changes the room type and its derived capacity together.
func (r *Room) SetType(t RoomType) {
	r.Type = t
	r.Capacity = t.Capacity()
}

// Occupancy is the number of clients currently housed.
func (r Room) Occupancy() int {
	return len(r.Assignments)
}

// Holds reports whether clientID is assigned to the room.
func (r Room) Holds(clientID string) bool {
	for _, a := range r.Assignments {
		if a.ClientID == clientID {
			return true
		}
	}
	return false
}

// Assignment links a client to a room within a city.
type Assignment struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	ClientID   string    `json:"clientId"`
	City       City      `json:"city"`
	AssignedAt time.Time `json:"assignedAt"`
	Client     *Client   `json:"client,omitempty"`
}
