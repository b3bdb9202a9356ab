package twilio

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// twimlResponse is the TwiML document returned to Twilio's incoming-call
// webhook. It greets the caller and connects the call's media stream to the
// bridge's WebSocket endpoint, passing the caller id as a custom parameter.
type twimlResponse struct {
	XMLName xml.Name      `xml:"Response"`
	Say     string        `xml:"Say,omitempty"`
	Connect *twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// StreamTwiML renders the TwiML that instructs Twilio to open the
// media-stream WebSocket at wsURL, with the caller id attached as a custom
// parameter. greeting, when non-empty, is spoken before the stream connects.
func StreamTwiML(wsURL, caller, greeting string) ([]byte, error) {
	doc := twimlResponse{
		Say: greeting,
		Connect: &twimlConnect{
			Stream: twimlStream{
				URL: wsURL,
				Parameters: []twimlParameter{
					{Name: "caller", Value: caller},
				},
			},
		},
	}
	body, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("twilio: marshal twiml: %w", err)
	}
	return []byte(xml.Header + string(body)), nil
}

// StreamURL converts the public HTTP base URL into the wss:// address of the
// media-stream endpoint.
func StreamURL(publicURL string) string {
	ws := publicURL
	ws = strings.Replace(ws, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return strings.TrimSuffix(ws, "/") + "/media-stream"
}
