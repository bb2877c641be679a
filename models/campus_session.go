package models

// CampusSession is the "current session" card of the dashboard.
type CampusSession struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Type        string `json:"type"`
	Description string `json:"description"`
	WebXRURL    string `json:"webxrUrl"`
}

// CurrentCampusSession is the session advertised on every dashboard.
var CurrentCampusSession = CampusSession{
	Title:       "Futuro del Trabajo",
	Location:    "TOKIO",
	Type:        "Video",
	Description: "Explora las tendencias del futuro del trabajo en Tokio",
	WebXRURL:    "https://example.com/webxr-session",
}
