package types

// Actor is the verified caller identity, produced once at the boundary from
// the access token and passed into the lifecycle engine as-is.
type Actor struct {
	ID     string
	Email  string
	Groups []string
}

func (a Actor) IsAdmin() bool {
	for _, g := range a.Groups {
		if g == "Admin" {
			return true
		}
	}
	return false
}
