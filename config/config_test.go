package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widgetConfig struct {
	Pretrained `mapstructure:",squash"`
	Width      int    `mapstructure:"width"`
	Shape      string `mapstructure:"shape"`
}

func (w *widgetConfig) ToMap() map[string]interface{} {
	m := w.Pretrained.ToMap()
	m["width"] = w.Width
	m["shape"] = w.Shape
	return m
}

func newWidget() *widgetConfig {
	pad := 0
	return &widgetConfig{
		Pretrained: Pretrained{ModelType: "widget", PadTokenID: &pad},
		Width:      8,
		Shape:      "square",
	}
}

func init() {
	Register("widget", func(overrides map[string]interface{}) (Model, error) {
		w := newWidget()
		if err := Decode(overrides, w); err != nil {
			return nil, err
		}
		return w, nil
	})
}

func TestDecodeOverridesAndExtras(t *testing.T) {
	w := newWidget()
	err := Decode(map[string]interface{}{
		"width":         16,
		"architectures": []interface{}{"WidgetModel"},
		"color":         "red",
	}, w)
	require.NoError(t, err)
	assert.Equal(t, 16, w.Width)
	assert.Equal(t, "square", w.Shape)
	assert.Equal(t, []string{"WidgetModel"}, w.Architectures)
	assert.Equal(t, map[string]interface{}{"color": "red"}, w.Extra)

	// a second decode keeps the earlier extras
	require.NoError(t, Decode(map[string]interface{}{"size": "xl"}, w))
	assert.Equal(t, map[string]interface{}{"color": "red", "size": "xl"},
		w.Extra)
}

func TestDecodeTypeMismatch(t *testing.T) {
	w := newWidget()
	w.Extra = map[string]interface{}{"kept": true}
	err := Decode(map[string]interface{}{"width": "wide"}, w)
	assert.ErrorIs(t, err, ErrInvalidOverride)
	assert.Equal(t, map[string]interface{}{"kept": true}, w.Extra)
}

func TestPretrainedGet(t *testing.T) {
	w := newWidget()
	w.Extra = map[string]interface{}{"color": "red", "model_type": "shadowed"}
	v, ok := w.Get("color")
	assert.True(t, ok)
	assert.Equal(t, "red", v)
	v, ok = w.Get("model_type")
	assert.True(t, ok)
	assert.Equal(t, "widget", v)
	v, ok = w.Get("bos_token_id")
	assert.True(t, ok)
	assert.Nil(t, v)
	_, ok = w.Get("missing")
	assert.False(t, ok)
}

func TestCloneBaseIsIndependent(t *testing.T) {
	w := newWidget()
	w.Extra = map[string]interface{}{"color": "red"}
	w.Architectures = []string{"A"}
	clone := w.CloneBase()
	clone.Extra["color"] = "blue"
	clone.Architectures[0] = "B"
	*clone.PadTokenID = 9
	assert.Equal(t, "red", w.Extra["color"])
	assert.Equal(t, "A", w.Architectures[0])
	assert.Equal(t, 0, *w.PadTokenID)
}

func TestFromJSONDispatch(t *testing.T) {
	model, err := FromJSON([]byte(`{"model_type": "widget", "width": 3,
		"note": "hi"}`))
	require.NoError(t, err)
	w, ok := model.(*widgetConfig)
	require.True(t, ok)
	assert.Equal(t, 3, w.Width)
	assert.Equal(t, "hi", w.Extra["note"])
	assert.Contains(t, ModelTypes(), "widget")
}

func TestFromJSONUnknownModelType(t *testing.T) {
	_, err := FromJSON([]byte(`{"model_type": "gadget"}`))
	assert.ErrorIs(t, err, ErrUnknownModelType)
	_, err = FromJSON([]byte(`{"model_type": `))
	assert.Error(t, err)
}

func TestDiffMap(t *testing.T) {
	w := newWidget()
	w.Width = 32
	w.Extra = map[string]interface{}{"color": "red"}
	diff := DiffMap(w, newWidget())
	expected := map[string]interface{}{
		"model_type": "widget",
		"width":      32,
		"color":      "red",
	}
	if d := cmp.Diff(expected, diff); d != "" {
		t.Errorf("DiffMap mismatch (-want +got):\n%s", d)
	}
}

func TestSaveAndResolveJSON(t *testing.T) {
	dir := t.TempDir()
	w := newWidget()
	w.Extra = map[string]interface{}{"color": "red"}
	require.NoError(t, Save(w, dir))

	raw, err := os.ReadFile(filepath.Join(dir, ConfigName))
	require.NoError(t, err)
	var saved map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "red", saved["color"])
	assert.Equal(t, float64(8), saved["width"])

	data, err := ResolveJSON(dir, "")
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(data))

	model, err := FromPretrained(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, model.Base().NameOrPath)
	assert.Equal(t, 8, model.(*widgetConfig).Width)
}
