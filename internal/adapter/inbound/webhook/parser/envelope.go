package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Envelope is the outer shape shared by every Graph webhook callback.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID        string           `json:"id"`
	Time      flexTime         `json:"time"`
	Changes   []change         `json:"changes"`
	Messaging []messagingEvent `json:"messaging"`
}

type change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// handle returns the best available display handle for the account.
func (a account) handle() string {
	switch {
	case a.Username != "":
		return a.Username
	case a.Name != "":
		return a.Name
	default:
		return a.ID
	}
}

type messagingEvent struct {
	Sender    account  `json:"sender"`
	Recipient account  `json:"recipient"`
	Timestamp flexTime `json:"timestamp"`
	Message   *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
}

// PeekObject decodes only the object kind of a callback payload.
func PeekObject(payload []byte) (string, error) {
	var env struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", fmt.Errorf("decoding callback envelope: %w", err)
	}
	return env.Object, nil
}

func decodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding callback envelope: %w", err)
	}
	return env, nil
}

// flexTime accepts unix seconds, unix milliseconds, or a Graph date string
// such as "2024-05-01T10:00:00+0000".
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			t.Time = time.UnixMilli(n).UTC()
		} else {
			t.Time = time.Unix(n, 0).UTC()
		}
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	// Unknown formats fall back to receipt time rather than failing the item.
	return nil
}
