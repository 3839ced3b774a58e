package action

import (
	"encoding/json"

	"github.com/fedcore/corefed/pkg/ids"
)

// jsonMessage mirrors Message for JSON (de)serialization; Payload is
// carried as its raw bytes rather than the SmallBuffer wrapper.
type jsonMessage struct {
	ActionCode Code     `json:"action_code"`
	SourceID   int32    `json:"source_id"`
	DestID     int32    `json:"dest_id"`
	MessageID  int32    `json:"message_id"`
	ActionTime float64  `json:"action_time"`
	Te         float64  `json:"te"`
	Tdemin     float64  `json:"tdemin"`
	Counter    uint32   `json:"counter"`
	Flags      uint32   `json:"flags"`
	Payload    []byte   `json:"payload,omitempty"`
	StringData []string `json:"string_data,omitempty"`
	Name       string   `json:"name,omitempty"`
}

// ToJSON serializes m to its JSON form, used in place of ToVector when
// FlagUseJSONSerialization is set.
func (m *Message) ToJSON() ([]byte, error) {
	jm := jsonMessage{
		ActionCode: m.ActionCode,
		SourceID:   int32(m.SourceID),
		DestID:     int32(m.DestID),
		MessageID:  m.MessageID,
		ActionTime: m.ActionTime,
		Te:         m.Te,
		Tdemin:     m.Tdemin,
		Counter:    m.Counter,
		Flags:      m.Flags,
		StringData: m.StringData,
		Name:       m.Name,
	}
	if m.Payload.Len() > 0 {
		jm.Payload = []byte(m.Payload.ToStringView())
	}
	return json.Marshal(jm)
}

// FromJSON parses the JSON form produced by ToJSON.
func FromJSON(data []byte) (*Message, error) {
	var jm jsonMessage
	if err := json.Unmarshal(data, &jm); err != nil {
		return nil, err
	}

	m := &Message{
		ActionCode: jm.ActionCode,
		SourceID:   ids.GlobalFederateId(jm.SourceID),
		DestID:     ids.GlobalFederateId(jm.DestID),
		MessageID:  jm.MessageID,
		ActionTime: jm.ActionTime,
		Te:         jm.Te,
		Tdemin:     jm.Tdemin,
		Counter:    jm.Counter,
		Flags:      jm.Flags,
		StringData: jm.StringData,
		Name:       jm.Name,
	}
	if len(jm.Payload) > 0 {
		if err := m.Payload.Assign(jm.Payload); err != nil {
			return nil, err
		}
	}
	return m, nil
}
