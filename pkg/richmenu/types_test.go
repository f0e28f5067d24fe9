package richmenu

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMenu = `{
  "size": {"width": 2500, "height": 843},
  "selected": true,
  "name": "Main",
  "chatBarText": "Tap here",
  "areas": [
    {"bounds": {"x": 0, "y": 0, "width": 1250, "height": 843},
     "action": {"type": "uri", "label": "Shop", "uri": "https://example.com"}},
    {"bounds": {"x": 1250, "y": 0, "width": 1250, "height": 843},
     "action": {"type": "richmenuswitch", "richMenuAliasId": "page-2", "data": "switch=2"}}
  ]
}`

func TestRichMenuDecodesActionVariants(t *testing.T) {
	var m RichMenu
	require.NoError(t, json.Unmarshal([]byte(sampleMenu), &m))

	require.Len(t, m.Areas, 2)
	uri, ok := m.Areas[0].Action.(*URIAction)
	require.True(t, ok, "got %T", m.Areas[0].Action)
	assert.Equal(t, "https://example.com", uri.URI)

	sw, ok := m.Areas[1].Action.(*RichMenuSwitchAction)
	require.True(t, ok, "got %T", m.Areas[1].Action)
	assert.Equal(t, "page-2", sw.RichMenuAliasID)

	assert.NoError(t, m.Check(nil))
}

func TestMarshalActionAddsType(t *testing.T) {
	data, err := MarshalAction(&PostbackAction{Data: "a=1", DisplayText: "One"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"postback","data":"a=1","displayText":"One"}`, string(data))
}

func TestUnknownActionRoundTrips(t *testing.T) {
	raw := `{"type":"camera","label":"Snap","futureField":{"nested":[1,2]}}`

	a, err := UnmarshalAction([]byte(raw))
	require.NoError(t, err)
	u, ok := a.(*UnknownAction)
	require.True(t, ok, "got %T", a)
	assert.Equal(t, "camera", u.Type())
	assert.NoError(t, u.validate())

	out, err := MarshalAction(a)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestAreaWithoutAction(t *testing.T) {
	var a Area
	require.NoError(t, json.Unmarshal([]byte(`{"bounds":{"x":1,"y":2,"width":3,"height":4}}`), &a))
	assert.Nil(t, a.Action)
	assert.Equal(t, Bounds{X: 1, Y: 2, Width: 3, Height: 4}, a.Bounds)
}

func TestParseSize(t *testing.T) {
	for in, want := range map[string]Size{
		"2500x1686":  {2500, 1686},
		" 1200X405 ": {1200, 405},
		"800×270":    {800, 270},
		"800 x 540":  {800, 540},
	} {
		got, err := ParseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "2500", "wide", "10xtall"} {
		_, err := ParseSize(in)
		assert.Error(t, err, in)
	}
}

func validMenu() *RichMenu {
	return &RichMenu{
		Size:        Size{Width: 2500, Height: 1686},
		Name:        "Main",
		ChatBarText: "Menu",
		Areas: []Area{{
			Bounds: Bounds{Width: 2500, Height: 1686},
			Action: &MessageAction{Text: "hello"},
		}},
	}
}

func TestRichMenuNilAreasEncodeAsArray(t *testing.T) {
	data, err := json.Marshal(&RichMenu{Size: Size{2500, 843}, Name: "Empty", ChatBarText: "Menu"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"areas":[]`)

	data, err = json.Marshal(RichMenu{Name: "By value"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"areas":[]`)

	data, err = json.Marshal(validMenu())
	require.NoError(t, err)
	var back RichMenu
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back.Areas, 1)
	assert.Equal(t, "hello", back.Areas[0].Action.(*MessageAction).Text)
}

func TestRichMenuCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *RichMenu)
		errSub string
	}{
		{"valid", func(m *RichMenu) {}, ""},
		{"size", func(m *RichMenu) { m.Size = Size{1000, 1000} }, "unsupported rich menu size 1000x1000"},
		{"name", func(m *RichMenu) { m.Name = " " }, "name is required"},
		{"long name", func(m *RichMenu) { m.Name = strings.Repeat("n", MaxNameLength+1) }, "name exceeds"},
		{"chat bar", func(m *RichMenu) { m.ChatBarText = "" }, "chatBarText is required"},
		{"long chat bar", func(m *RichMenu) { m.ChatBarText = strings.Repeat("メ", MaxChatBarChars+1) }, "chatBarText exceeds"},
		{"chat bar at limit", func(m *RichMenu) { m.ChatBarText = strings.Repeat("メ", MaxChatBarChars) }, ""},
		{"no areas", func(m *RichMenu) { m.Areas = nil }, "between 1 and 20 areas"},
		{"too many areas", func(m *RichMenu) {
			for len(m.Areas) <= MaxAreas {
				m.Areas = append(m.Areas, m.Areas[0])
			}
		}, "between 1 and 20 areas"},
		{"out of bounds", func(m *RichMenu) { m.Areas[0].Bounds.X = 1 }, "fall outside"},
		{"missing action", func(m *RichMenu) { m.Areas[0].Action = nil }, "has no action"},
		{"incomplete action", func(m *RichMenu) { m.Areas[0].Action = &DatetimePickerAction{Data: "d", Mode: "week"} }, "mode must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMenu()
			tt.mutate(m)
			err := m.Check(nil)
			if tt.errSub == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestRichMenuCheckCustomSizes(t *testing.T) {
	m := validMenu()
	m.Size = Size{Width: 1200, Height: 810}
	m.Areas[0].Bounds = Bounds{Width: 1200, Height: 810}

	assert.Error(t, m.Check([]Size{{2500, 1686}}))
	assert.NoError(t, m.Check([]Size{{1200, 810}}))
}

func TestErrorFormatting(t *testing.T) {
	err := newStatusError(404, []byte(`{"message":"Not found"}`))
	assert.Equal(t, statusMessages[404]+" (status 404)", err.Error())
	assert.Equal(t, "not_found", err.Kind.String())
	assert.True(t, IsNotFound(err))

	terr := errTransport(assert.AnError)
	assert.Contains(t, terr.Error(), assert.AnError.Error())
	assert.Equal(t, KindUnknown, KindOf(assert.AnError))
	assert.Zero(t, StatusOf(assert.AnError))
}
