package identifiers

import "sort"

// UserName is the display name a peer registered under. It is unique across
// currently connected chat clients.
type UserName string

func (u UserName) String() string {
	return string(u)
}

// RoomID identifies a voice room.
type RoomID string

func (r RoomID) String() string {
	return string(r)
}

// DefaultRoom is the room clients join when no room id was given.
const DefaultRoom RoomID = "public"

type UserNames []UserName

var _ sort.Interface = UserNames(nil)

func (u UserNames) Len() int {
	return len(u)
}

func (u UserNames) Less(i, j int) bool {
	return u[i] < u[j]
}

func (u UserNames) Swap(i, j int) {
	u[i], u[j] = u[j], u[i]
}

// Strings returns the names as plain strings, in the same order.
func (u UserNames) Strings() []string {
	s := make([]string, len(u))

	for i, name := range u {
		s[i] = string(name)
	}

	return s
}
