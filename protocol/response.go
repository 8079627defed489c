package protocol

import (
	"encoding/json"
	"regexp"
	"strings"
)

// JavaStatus is the decoded Server List Ping response of a Java edition
// server.
type JavaStatus struct {
	Version             JavaVersion `json:"version"`
	Players             JavaPlayers `json:"players"`
	Description         Description `json:"description"`
	Favicon             string      `json:"favicon,omitempty"`
	EnforcesSecureChat  *bool       `json:"enforcesSecureChat,omitempty"`
	PreventsChatReports *bool       `json:"preventsChatReports,omitempty"`
}

// JavaVersion names the server software and its protocol number.
type JavaVersion struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

// JavaPlayers carries the player counts and the optional sample list.
type JavaPlayers struct {
	Max    int          `json:"max"`
	Online int          `json:"online"`
	Sample []JavaPlayer `json:"sample,omitempty"`
}

// JavaPlayer is one entry of the player sample.
type JavaPlayer struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// BedrockStatus is the decoded unconnected pong of a Bedrock edition server.
// Trailing MOTD fields are optional on the wire; absent ones are nil.
type BedrockStatus struct {
	Edition             string         `json:"edition"`
	Name                string         `json:"name"`
	LevelName           string         `json:"levelName"`
	GameMode            string         `json:"gamemode"`
	Version             BedrockVersion `json:"version"`
	Players             BedrockPlayers `json:"players"`
	Port                BedrockPorts   `json:"port"`
	GUID                int64          `json:"guid"`
	IsNintendoLimited   *bool          `json:"isNintendoLimited,omitempty"`
	IsEditorModeEnabled *bool          `json:"isEditorModeEnabled,omitempty"`
}

// BedrockVersion names the protocol number and game version.
type BedrockVersion struct {
	Protocol  int    `json:"protocol"`
	Minecraft string `json:"minecraft"`
}

// BedrockPlayers carries the player counts.
type BedrockPlayers struct {
	Online int `json:"online"`
	Max    int `json:"max"`
}

// BedrockPorts carries the ports the server advertises in its MOTD record.
type BedrockPorts struct {
	V4 *uint16 `json:"v4,omitempty"`
	V6 *uint16 `json:"v6,omitempty"`
}

// Description is a Java server MOTD. On the wire it is either a plain JSON
// string or a chat component object with nested "extra" parts.
type Description struct {
	value any
}

// UnmarshalJSON keeps the raw shape so both forms round-trip.
func (d *Description) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.value)
}

// MarshalJSON writes the description back in its original form.
func (d Description) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.value)
}

// String flattens the description to its visible text, concatenating the
// "text" field with any "extra" parts.
func (d Description) String() string {
	var sb strings.Builder
	flattenComponent(&sb, d.value)
	return sb.String()
}

func flattenComponent(sb *strings.Builder, v any) {
	switch c := v.(type) {
	case string:
		sb.WriteString(c)
	case map[string]any:
		if text, ok := c["text"].(string); ok {
			sb.WriteString(text)
		}
		if extra, ok := c["extra"].([]any); ok {
			for _, part := range extra {
				flattenComponent(sb, part)
			}
		}
	}
}

var formattingCodes = regexp.MustCompile(`§[0-9a-fk-or]`)

// Clean returns the flattened description with § formatting codes removed
// and surrounding whitespace trimmed.
func (d Description) Clean() string {
	return strings.TrimSpace(formattingCodes.ReplaceAllString(d.String(), ""))
}

// ServerInfo is the transport-agnostic summary shape shared by both
// editions. The registry query path produces it for display; callers that
// need the full protocol detail use JavaStatus or BedrockStatus directly.
type ServerInfo struct {
	Name    string            `json:"name"`
	Edition string            `json:"edition"`
	Version string            `json:"version"`
	Address string            `json:"address"`
	Port    uint16            `json:"port"`
	Players PlayerCount       `json:"players"`
	Ping    int               `json:"ping"`
	Online  bool              `json:"online"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// PlayerCount is the online/max pair of the summary shape.
type PlayerCount struct {
	Online int `json:"online"`
	Max    int `json:"max"`
}
