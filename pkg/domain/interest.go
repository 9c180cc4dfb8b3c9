package domain

// Interest is one user's registration of interest in an event. The event
// fields are a snapshot taken at registration time.
type Interest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Topic      string `json:"topic"`
	EventName  string `json:"eventName"`
	EventPrice string `json:"eventPrice"`
	Timestamp  string `json:"timestamp"`
}

// SameRegistration reports whether two records describe the same user
// registering for the same event.
func (i Interest) SameRegistration(other Interest) bool {
	if i.EventName != other.EventName {
		return false
	}
	if i.Email != "" && i.Email == other.Email {
		return true
	}
	return i.Username != "" && i.Username == other.Username
}

type InterestRequest struct {
	EventID   string `json:"eventId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

// InterestSummary is one row of the admin aggregation. The JSON keys match
// the column headings of the exported sheet.
type InterestSummary struct {
	EventName string  `json:"Event Name"`
	Fees      string  `json:"Fees"`
	Count     int     `json:"No. of interests"`
	Total     float64 `json:"Total"`
}
