package editor

import (
	"context"
	"sync"
	"testing"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/extensions"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/resize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type presented struct {
	mu    sync.Mutex
	sizes [][2]string
}

func (p *presented) Present(width, height string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizes = append(p.sizes, [2]string{width, height})
}

func (p *presented) last() [2]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sizes) == 0 {
		return [2]string{"-", "-"}
	}
	return p.sizes[len(p.sizes)-1]
}

// editorWithEmbed "hello" и плеер за ним в позиции 7.
func editorWithEmbed(t *testing.T) *Editor {
	t.Helper()
	e := newEditor(t, WithContent("<p>hello</p>"))
	ok, err := e.Run("youtube", extensions.Args{"url": "https://youtu.be/abcDEF123"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "embed", e.Doc().Child(1).Type.Name)
	return e
}

func TestBindEmbedResize(t *testing.T) {
	e := editorWithEmbed(t)
	var p presented
	b, err := e.BindEmbed(7, &p)
	require.NoError(t, err)
	// адаптивный плеер без размера
	assert.Equal(t, [2]string{"", ""}, p.last())

	found, ok := e.Binding(7)
	require.True(t, ok)
	assert.Same(t, b, found)

	require.NoError(t, b.PointerDown(resize.PointerEvent{Kind: resize.Mouse, Width: 640, Height: 360}))
	require.NoError(t, b.PointerMove(resize.PointerEvent{Kind: resize.Mouse, X: 100, Y: 5}))
	assert.Equal(t, [2]string{"740px", "416px"}, p.last())
	require.NoError(t, b.PointerUp(resize.PointerEvent{Kind: resize.Mouse, X: 100, Y: 5}))

	embed := e.Doc().Child(1)
	assert.Equal(t, "740px", embed.Attr("width"))
	assert.Equal(t, "416px", embed.Attr("height"))
	assert.True(t, e.Toolbar().CanUndo)

	require.NoError(t, b.DoubleClick())
	assert.Nil(t, e.Doc().Child(1).Attr("width"))
	assert.Equal(t, [2]string{"", ""}, p.last())

	// undo возвращает размер, привязка показывает его
	require.True(t, e.Undo())
	assert.Equal(t, [2]string{"740px", "416px"}, p.last())
}

func TestBindEmbedCommitRejected(t *testing.T) {
	e := editorWithEmbed(t)
	var p presented
	b, err := e.BindEmbed(7, &p)
	require.NoError(t, err)
	require.NoError(t, e.OpenMarkupView(context.Background()))

	require.NoError(t, b.PointerDown(resize.PointerEvent{Kind: resize.Mouse, Width: 640, Height: 360}))
	require.NoError(t, b.PointerMove(resize.PointerEvent{Kind: resize.Mouse, X: 100, Y: 5}))
	require.NoError(t, b.PointerUp(resize.PointerEvent{Kind: resize.Mouse, X: 100, Y: 5}))

	assert.Nil(t, e.Doc().Child(1).Attr("width"))
	assert.Equal(t, [2]string{"640px", "360px"}, p.last())
}

func TestBindingFollowsNode(t *testing.T) {
	e := editorWithEmbed(t)
	var p presented
	b, err := e.BindEmbed(7, &p)
	require.NoError(t, err)

	e.SetSelection(1, 1)
	ok, err := e.Run("insertText", extensions.Args{"text": "ab"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, b.Pos())
	_, ok = e.Binding(7)
	assert.False(t, ok)

	require.NoError(t, b.PointerDown(resize.PointerEvent{Kind: resize.Mouse, Width: 640, Height: 360}))
	require.NoError(t, b.PointerMove(resize.PointerEvent{Kind: resize.Mouse, X: -100}))
	require.NoError(t, b.PointerUp(resize.PointerEvent{Kind: resize.Mouse, X: -100}))
	assert.Equal(t, "540px", e.Doc().Child(1).Attr("width"))

	require.NoError(t, e.SelectNode(9))
	ok, err = e.Run("deleteSelection", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, e.Doc().ChildCount())
	assert.True(t, b.Disposed())
	assert.ErrorIs(t, b.PointerDown(resize.PointerEvent{Kind: resize.Mouse}), resize.ErrDisposed)
}

func TestBindEmbedRejects(t *testing.T) {
	e := editorWithEmbed(t)
	_, err := e.BindEmbed(0, &presented{})
	assert.ErrorIs(t, err, ErrNotResizable)
	_, err = e.BindEmbed(100, &presented{})
	assert.ErrorIs(t, err, ErrNotResizable)
}

func TestCloseDisposesBindings(t *testing.T) {
	e := editorWithEmbed(t)
	b, err := e.BindEmbed(7, &presented{})
	require.NoError(t, err)
	e.Close()
	assert.True(t, b.Disposed())
}
