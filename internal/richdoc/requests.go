package richdoc

import (
	"bytes"
	"encoding/json"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/resize"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/syncstate"
)

type CreateSessionRequest struct {
	Markup string          `json:"markup"`
	JSON   json.RawMessage `json:"json,omitempty"`
}

// hasJSON null и пустое значение считаются отсутствующими
func (r CreateSessionRequest) hasJSON() bool {
	t := bytes.TrimSpace(r.JSON)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

type MarkupRequest struct {
	Markup string `json:"markup"`
	// EmitEvents по умолчанию true
	EmitEvents *bool `json:"emitEvents"`
}

func (r MarkupRequest) emit() bool {
	return r.EmitEvents == nil || *r.EmitEvents
}

type SelectionRequest struct {
	Anchor *int `json:"anchor" validate:"required,min=0"`
	Head   *int `json:"head" validate:"omitempty,min=0"`
	// Node выделение узла, начинающегося в Anchor
	Node bool `json:"node"`
}

type CommandRequest struct {
	Name string         `json:"-" param:"name" validate:"required,commandName"`
	Args map[string]any `json:"args"`
}

type PasteRequest struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

type MarkupViewRequest struct {
	Source *string `json:"source"`
}

type PointerRequest struct {
	Pos   int                 `json:"-" param:"pos" validate:"min=0"`
	Op    string              `json:"op" validate:"required,pointerOp"`
	Event resize.PointerEvent `json:"event"`
}

type NormalizeRequest struct {
	URL string `json:"url" validate:"required,webURL"`
}

// StateResponse результат правки: применена ли она и новое состояние панели.
type StateResponse struct {
	Applied  bool              `json:"applied"`
	Toolbar  syncstate.Toolbar `json:"toolbar"`
	Warnings []string          `json:"warnings,omitempty"`
}

type SessionResponse struct {
	ID      string            `json:"id"`
	Toolbar syncstate.Toolbar `json:"toolbar"`
}

type MarkupResponse struct {
	Markup string `json:"markup"`
}

type MarkupViewResponse struct {
	Open     bool              `json:"open"`
	Source   string            `json:"source"`
	Toolbar  syncstate.Toolbar `json:"toolbar"`
	Warnings []string          `json:"warnings,omitempty"`
}

type FilesResponse struct {
	Inserted int               `json:"inserted"`
	Toolbar  syncstate.Toolbar `json:"toolbar"`
	Warnings []string          `json:"warnings,omitempty"`
}

type PointerResponse struct {
	Pos      int    `json:"pos"`
	Width    string `json:"width"`
	Height   string `json:"height"`
	Dragging bool   `json:"dragging"`
}
