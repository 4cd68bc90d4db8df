package sessions

// Payload is the identity carried inside the signed session cookie. It is
// copied from the Discord profile at login and never changes afterwards.
type Payload struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	Avatar        *string `json:"avatar"` // nil when the user has no avatar
}

// Display formats the user as "username#discriminator (id)".
func (p *Payload) Display() string {
	if p == nil {
		return "-"
	}
	return p.Username + "#" + p.Discriminator + " (" + p.ID + ")"
}
