package unofficial

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// UserAgent mimics the browser the web client is known to accept.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:95.0) Gecko/20100101 Firefox/95.0"

const deviceIDPrefix = "6490"

type device struct {
	Platform  string `json:"platform"`
	OS        string `json:"os"`
	Device    string `json:"device"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	Campaign  string `json:"campaign"`
	Websocket string `json:"websocket"`
}

// newDeviceID returns "6490" followed by 20 random hex characters.
func newDeviceID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return deviceIDPrefix + hex[:20]
}

// deviceHeader renders the x-device header value for id.
func deviceHeader(id string) string {
	b, _ := json.Marshal(device{
		Platform: "web",
		OS:       "OS X",
		Device:   "Firefox 95.0",
		Name:     "unofficial api!",
		Version:  4531,
		ID:       id,
		Channel:  "website",
	})
	return string(b)
}
