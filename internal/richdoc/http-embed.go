package richdoc

import (
	"net/http"
	"sync"

	"github.com/aisa-it/richdoc/internal/richdoc/apierrors"
	"github.com/aisa-it/richdoc/internal/richdoc/editor/resize"
	"github.com/labstack/echo/v4"
)

// sizePresenter запоминает последний показанный размер встраивания для ответа клиенту.
type sizePresenter struct {
	mu     sync.Mutex
	width  string
	height string
}

func (p *sizePresenter) Present(width, height string) {
	p.mu.Lock()
	p.width, p.height = width, height
	p.mu.Unlock()
}

func (p *sizePresenter) size() (string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// normalizeURL godoc
// @Summary Нормализация ссылки на видео
// @Tags Embeds
// @Accept json
// @Produce json
// @Param data body NormalizeRequest true "Ссылка"
// @Success 200 {object} providers.Descriptor
// @Failure 422 {object} apierrors.DefinedError
// @Router /api/normalize/ [post]
func (s *Services) normalizeURL(c echo.Context) error {
	var req NormalizeRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}
	d := s.normalizer.Normalize(req.URL)
	if d == nil {
		return EErrorDefined(c, apierrors.ErrNotEmbeddable)
	}
	return c.JSON(http.StatusOK, d)
}

// embedPointer godoc
// @Summary Событие перетаскивания размера встраивания
// @Description Привязка к узлу создается при первом событии и живет, пока узел есть в документе
// @Tags Embeds
// @Accept json
// @Produce json
// @Param sessionId path string true "ID сессии"
// @Param pos path int true "Позиция узла"
// @Param data body PointerRequest true "Событие"
// @Success 200 {object} PointerResponse
// @Failure 409 {object} apierrors.DefinedError
// @Failure 422 {object} apierrors.DefinedError
// @Router /api/sessions/{sessionId}/embeds/{pos}/pointer/ [post]
func (s *Services) embedPointer(c echo.Context) error {
	session := c.(SessionContext).Session
	var req PointerRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	binding, ok := session.Editor.Binding(req.Pos)
	if !ok {
		presenter := &sizePresenter{}
		var err error
		binding, err = session.Editor.BindEmbed(req.Pos, presenter)
		if err != nil {
			return EError(c, err)
		}
		session.Presenters.Store(binding, presenter)
	}

	var err error
	switch req.Op {
	case "down":
		err = binding.PointerDown(req.Event)
	case "move":
		err = binding.PointerMove(req.Event)
	case "up":
		err = binding.PointerUp(req.Event)
	case "cancel":
		err = binding.PointerCancel(req.Event)
	case "blur":
		err = binding.Blur()
	case "dblclick":
		err = binding.DoubleClick()
	default:
		return EErrorDefined(c, apierrors.ErrUnknownPointerOp.WithFormattedMessage(req.Op))
	}
	if err != nil {
		return EError(c, err)
	}

	resp := PointerResponse{Pos: binding.Pos(), Dragging: binding.Dragging()}
	if v, ok := session.Presenters.Load(binding); ok {
		resp.Width, resp.Height = v.(*sizePresenter).size()
	}
	if binding.Disposed() {
		session.Presenters.Delete(binding)
		resp.Pos = -1
	}
	return c.JSON(http.StatusOK, resp)
}

var _ resize.Presenter = (*sizePresenter)(nil)
