package richmenu

import (
	"encoding/json"
	"fmt"
)

const (
	ActionURI            = "uri"
	ActionMessage        = "message"
	ActionPostback       = "postback"
	ActionRichMenuSwitch = "richmenuswitch"
	ActionDatetimePicker = "datetimepicker"
	ActionClipboard      = "clipboard"
)

// Action is what happens when a user taps an area. The set of implementations
// is closed; anything the LINE API adds later decodes as *UnknownAction.
type Action interface {
	Type() string
	// validate reports missing required fields.
	validate() error
}

type AltURI struct {
	Desktop string `json:"desktop,omitempty"`
}

type URIAction struct {
	Label  string  `json:"label,omitempty"`
	URI    string  `json:"uri"`
	AltURI *AltURI `json:"altUri,omitempty"`
}

type MessageAction struct {
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

type PostbackAction struct {
	Label       string `json:"label,omitempty"`
	Data        string `json:"data"`
	DisplayText string `json:"displayText,omitempty"`
	InputOption string `json:"inputOption,omitempty"`
	FillInText  string `json:"fillInText,omitempty"`
}

// RichMenuSwitchAction switches the user's menu to the one behind an alias.
type RichMenuSwitchAction struct {
	Label           string `json:"label,omitempty"`
	RichMenuAliasID string `json:"richMenuAliasId"`
	Data            string `json:"data"`
}

type DatetimePickerAction struct {
	Label   string `json:"label,omitempty"`
	Data    string `json:"data"`
	Mode    string `json:"mode"`
	Initial string `json:"initial,omitempty"`
	Max     string `json:"max,omitempty"`
	Min     string `json:"min,omitempty"`
}

type ClipboardAction struct {
	Label         string `json:"label,omitempty"`
	ClipboardText string `json:"clipboardText"`
}

// UnknownAction keeps an unrecognised action verbatim so it survives a
// get-then-create round trip.
type UnknownAction struct {
	ActionType string
	Raw        json.RawMessage
}

func (*URIAction) Type() string            { return ActionURI }
func (*MessageAction) Type() string        { return ActionMessage }
func (*PostbackAction) Type() string       { return ActionPostback }
func (*RichMenuSwitchAction) Type() string { return ActionRichMenuSwitch }
func (*DatetimePickerAction) Type() string { return ActionDatetimePicker }
func (*ClipboardAction) Type() string      { return ActionClipboard }
func (a *UnknownAction) Type() string      { return a.ActionType }

func (a *URIAction) validate() error {
	if a.URI == "" {
		return fmt.Errorf("uri action requires uri")
	}
	return nil
}

func (a *MessageAction) validate() error {
	if a.Text == "" {
		return fmt.Errorf("message action requires text")
	}
	return nil
}

func (a *PostbackAction) validate() error {
	if a.Data == "" {
		return fmt.Errorf("postback action requires data")
	}
	return nil
}

func (a *RichMenuSwitchAction) validate() error {
	if a.RichMenuAliasID == "" || a.Data == "" {
		return fmt.Errorf("richmenuswitch action requires richMenuAliasId and data")
	}
	return nil
}

func (a *DatetimePickerAction) validate() error {
	if a.Data == "" {
		return fmt.Errorf("datetimepicker action requires data")
	}
	switch a.Mode {
	case "date", "time", "datetime":
		return nil
	default:
		return fmt.Errorf("datetimepicker mode must be date, time or datetime, got %q", a.Mode)
	}
}

func (a *ClipboardAction) validate() error {
	if a.ClipboardText == "" {
		return fmt.Errorf("clipboard action requires clipboardText")
	}
	return nil
}

func (a *UnknownAction) validate() error {
	return nil
}

// MarshalAction encodes a with its "type" discriminator.
func MarshalAction(a Action) ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	if u, ok := a.(*UnknownAction); ok {
		if len(u.Raw) == 0 {
			return json.Marshal(map[string]string{"type": u.ActionType})
		}
		return u.Raw, nil
	}

	body, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	typ, _ := json.Marshal(a.Type())
	fields["type"] = typ
	return json.Marshal(fields)
}

// UnmarshalAction decodes one action object, dispatching on its "type".
func UnmarshalAction(data []byte) (Action, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}

	var a Action
	switch head.Type {
	case ActionURI:
		a = &URIAction{}
	case ActionMessage:
		a = &MessageAction{}
	case ActionPostback:
		a = &PostbackAction{}
	case ActionRichMenuSwitch:
		a = &RichMenuSwitchAction{}
	case ActionDatetimePicker:
		a = &DatetimePickerAction{}
	case ActionClipboard:
		a = &ClipboardAction{}
	default:
		return &UnknownAction{ActionType: head.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}

	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("failed to decode %s action: %w", head.Type, err)
	}
	return a, nil
}
