package scene

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCircle(id, fill string) *Shape {
	return &Shape{
		Props: Props{ID: id, Left: 200, Top: 250, Width: 100, Height: 100, Fill: fill, Selectable: true, Evented: true},
		Shape: ShapeCircle,
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewSurface(500, 600)
	require.NoError(t, s.Add(newCircle("c1", "#facc15")))
	require.NoError(t, s.Add(&Text{
		Props:      Props{ID: "t1", Left: 250, Top: 200, Fill: "#000000", Selectable: true, Evented: true},
		Text:       "YOUNGIN",
		FontSize:   40,
		FontWeight: "bold",
	}))
	require.NoError(t, s.Add(&Shape{
		Props:  Props{ID: "p1", Stroke: "#d946ef", StrokeWidth: 5, Selectable: true},
		Shape:  ShapePath,
		Points: []Point{{X: 1, Y: 2}, {X: 30, Y: 40}},
	}))

	snap, err := s.Snapshot()
	require.NoError(t, err)

	restored := NewSurface(500, 600)
	require.NoError(t, restored.Load(snap))
	assert.Equal(t, s.Objects(), restored.Objects())

	again, err := restored.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, string(snap), string(again))
}

func TestLoad_CorruptSnapshotLeavesSurfaceUnchanged(t *testing.T) {
	s := NewSurface(500, 600)
	require.NoError(t, s.Add(newCircle("c1", "#ff0000")))
	before := s.Objects()

	cases := map[string]string{
		"not json":        "{{{",
		"unknown type":    `{"version":1,"objects":[{"type":"blob","id":"x"}]}`,
		"bad version":     `{"version":99,"objects":[]}`,
		"invalid object":  `{"version":1,"objects":[{"type":"text","id":"t","fontSize":0}]}`,
		"partially valid": `{"version":1,"objects":[{"type":"shape","shape":"rect","id":"r"},{"type":"image","id":"i"}]}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.Load([]byte(data)))
			assert.Equal(t, before, s.Objects())
		})
	}
}

func TestActiveObject(t *testing.T) {
	s := NewSurface(100, 100)
	require.NoError(t, s.Add(newCircle("c1", "#fff")))
	locked := newCircle("bg", "#000")
	locked.Selectable = false
	require.NoError(t, s.Add(locked))

	require.NoError(t, s.SetActive("c1"))
	assert.Equal(t, "c1", s.Active().Base().ID)
	assert.Error(t, s.SetActive("bg"))
	assert.Error(t, s.SetActive("missing"))

	s.DiscardActive()
	assert.Nil(t, s.Active())

	require.NoError(t, s.SetActive("c1"))
	assert.True(t, s.Remove("c1"))
	assert.Nil(t, s.Active())
	assert.False(t, s.Remove("c1"))
}

func TestAdd_RejectsDuplicatesAndInvalid(t *testing.T) {
	s := NewSurface(100, 100)
	require.NoError(t, s.Add(newCircle("c1", "#fff")))
	assert.Error(t, s.Add(newCircle("c1", "#000")))
	assert.Error(t, s.Add(&Image{Props: Props{ID: "i1"}}))
	assert.Len(t, s.Objects(), 1)
}

func TestSendToBack(t *testing.T) {
	s := NewSurface(100, 100)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(newCircle(id, "#fff")))
	}
	s.SendToBack("c")

	ids := []string{}
	for _, obj := range s.Objects() {
		ids = append(ids, obj.Base().ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestObjects_ReturnsCopies(t *testing.T) {
	s := NewSurface(100, 100)
	require.NoError(t, s.Add(newCircle("c1", "#fff")))
	s.Objects()[0].Base().Fill = "#000"

	obj, _ := s.Find("c1")
	assert.Equal(t, "#fff", obj.Base().Fill)
}

func TestPatchApply(t *testing.T) {
	left, fill, body := 10.0, "#123456", "HELLO"
	txt := &Text{Props: Props{ID: "t"}, Text: "YOUNGIN", FontSize: 12}
	Patch{Left: &left, Fill: &fill, Text: &body}.Apply(txt)
	assert.Equal(t, 10.0, txt.Left)
	assert.Equal(t, "#123456", txt.Fill)
	assert.Equal(t, "HELLO", txt.Text)

	path := &Shape{Props: Props{ID: "p", Stroke: "#000000", StrokeWidth: 2}, Shape: ShapePath, Points: []Point{{}}}
	Patch{Fill: &fill}.Apply(path)
	assert.Equal(t, "#123456", path.Stroke)
	assert.Empty(t, path.Fill)
}

func TestRender_TransparentBackgroundAndFilledShape(t *testing.T) {
	s := NewSurface(100, 80)
	require.NoError(t, s.Add(&Shape{
		Props: Props{ID: "r", Left: 10, Top: 10, Width: 40, Height: 40, Fill: "#ff0000"},
		Shape: ShapeRect,
	}))

	img, err := s.Render()
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())

	_, _, _, a := img.At(90, 70).RGBA()
	assert.Zero(t, a, "untouched pixels stay transparent")

	r, g, b, a := img.At(30, 30).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Greater(t, r, g)
	assert.Greater(t, r, b)
}

func TestRender_ImageObject(t *testing.T) {
	var buf bytes.Buffer
	src := solidImage(4, 4, color.RGBA{0, 0, 255, 255})
	require.NoError(t, png.Encode(&buf, src))

	s := NewSurface(50, 50)
	require.NoError(t, s.Add(&Image{
		Props: Props{ID: "i", Left: 0, Top: 0, Width: 20, Height: 20},
		Src:   EncodeDataURL("image/png", buf.Bytes()),
	}))

	img, err := s.Render()
	require.NoError(t, err)
	_, _, b, a := img.At(10, 10).RGBA()
	assert.NotZero(t, a)
	assert.NotZero(t, b)
}
