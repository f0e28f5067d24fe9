package richmenu

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxImageBytes   = 1 << 20
	MaxBulkUsers    = 500
	MaxAreas        = 20
	MaxNameLength   = 300
	MaxChatBarChars = 14

	ContentTypePNG  = "image/png"
	ContentTypeJPEG = "image/jpeg"
)

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ParseSize accepts "2500x1686" (an upper-case X or "×" also works).
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, "×", "x")
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return Size{}, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Size{}, fmt.Errorf("invalid size width %q: %w", w, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return Size{}, fmt.Errorf("invalid size height %q: %w", h, err)
	}
	return Size{Width: width, Height: height}, nil
}

// DefaultSizes are the menu sizes LINE accepts.
func DefaultSizes() []Size {
	return []Size{
		{Width: 2500, Height: 1686},
		{Width: 2500, Height: 843},
		{Width: 1200, Height: 810},
		{Width: 1200, Height: 405},
		{Width: 800, Height: 540},
		{Width: 800, Height: 270},
	}
}

type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area is a tappable rectangle of the menu image.
type Area struct {
	Bounds Bounds
	Action Action
}

func (a Area) MarshalJSON() ([]byte, error) {
	action, err := MarshalAction(a.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Bounds Bounds          `json:"bounds"`
		Action json.RawMessage `json:"action"`
	}{a.Bounds, action})
}

func (a *Area) UnmarshalJSON(data []byte) error {
	var raw struct {
		Bounds Bounds          `json:"bounds"`
		Action json.RawMessage `json:"action"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Bounds = raw.Bounds
	a.Action = nil
	if len(raw.Action) > 0 && string(raw.Action) != "null" {
		action, err := UnmarshalAction(raw.Action)
		if err != nil {
			return err
		}
		a.Action = action
	}
	return nil
}

// RichMenu is a menu definition. RichMenuID is empty until LINE assigns one.
type RichMenu struct {
	RichMenuID  string `json:"richMenuId,omitempty"`
	Size        Size   `json:"size"`
	Selected    bool   `json:"selected"`
	Name        string `json:"name"`
	ChatBarText string `json:"chatBarText"`
	Areas       []Area `json:"areas"`
}

// MarshalJSON always emits areas as an array; LINE rejects null.
func (m RichMenu) MarshalJSON() ([]byte, error) {
	type plain RichMenu
	if m.Areas == nil {
		m.Areas = []Area{}
	}
	return json.Marshal(plain(m))
}

// Check performs the local sanity checks LINE would otherwise reject.
// An empty allowed list means DefaultSizes.
func (m *RichMenu) Check(allowed []Size) error {
	if len(allowed) == 0 {
		allowed = DefaultSizes()
	}
	sizeOK := false
	for _, s := range allowed {
		if s == m.Size {
			sizeOK = true
			break
		}
	}
	if !sizeOK {
		return errValidation("unsupported rich menu size %s", m.Size)
	}
	if strings.TrimSpace(m.Name) == "" {
		return errValidation("rich menu name is required")
	}
	if utf8.RuneCountInString(m.Name) > MaxNameLength {
		return errValidation("rich menu name exceeds %d characters", MaxNameLength)
	}
	if m.ChatBarText == "" {
		return errValidation("chatBarText is required")
	}
	if utf8.RuneCountInString(m.ChatBarText) > MaxChatBarChars {
		return errValidation("chatBarText exceeds %d characters", MaxChatBarChars)
	}
	if len(m.Areas) == 0 || len(m.Areas) > MaxAreas {
		return errValidation("rich menu must have between 1 and %d areas, got %d", MaxAreas, len(m.Areas))
	}
	for i, area := range m.Areas {
		b := area.Bounds
		if b.X < 0 || b.Y < 0 || b.Width <= 0 || b.Height <= 0 ||
			b.X+b.Width > m.Size.Width || b.Y+b.Height > m.Size.Height {
			return errValidation("area %d bounds %+v fall outside the %s menu", i, b, m.Size)
		}
		if area.Action == nil {
			return errValidation("area %d has no action", i)
		}
		if err := area.Action.validate(); err != nil {
			return errValidation("area %d: %v", i, err)
		}
	}
	return nil
}

type Alias struct {
	RichMenuAliasID string `json:"richMenuAliasId"`
	RichMenuID      string `json:"richMenuId"`
}

// Image is downloaded menu image content.
type Image struct {
	ContentType string
	Data        []byte
}
