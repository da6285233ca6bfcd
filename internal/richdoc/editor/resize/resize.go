// Пакет resize реализует перетаскивание размера встраиваемых узлов.
//
// Machine хранит только временное состояние перетаскивания и ничего не знает о документе:
// каждое событие возвращает Result, который Binding превращает в вызовы презентера и редактора.
package resize

import (
	"math"
)

type BlurPolicy int

const (
	// BlurCommit при потере фокуса сохраняет последний размер
	BlurCommit BlurPolicy = iota
	// BlurDiscard при потере фокуса возвращает исходный размер
	BlurDiscard
)

func (p BlurPolicy) String() string {
	if p == BlurDiscard {
		return "discard"
	}
	return "commit"
}

// ParseBlurPolicy разбирает значение из конфигурации, неизвестное значение дает BlurCommit.
func ParseBlurPolicy(s string) BlurPolicy {
	if s == "discard" {
		return BlurDiscard
	}
	return BlurCommit
}

type Config struct {
	MinWidth        int
	MaxWidth        int
	MinHeight       int
	MaxHeight       int
	LockAspectRatio bool
	BlurPolicy      BlurPolicy
}

func DefaultConfig() Config {
	return Config{
		MinWidth:        160,
		MaxWidth:        1920,
		MinHeight:       90,
		MaxHeight:       1080,
		LockAspectRatio: true,
		BlurPolicy:      BlurCommit,
	}
}

const defaultRatio = 16.0 / 9.0

type PointerKind string

const (
	Mouse PointerKind = "mouse"
	Touch PointerKind = "touch"
	Pen   PointerKind = "pen"
)

// PointerEvent событие указателя. Width и Height отрисованный размер узла в момент нажатия.
type PointerEvent struct {
	ID        int         `json:"pointerId"`
	Kind      PointerKind `json:"pointerType"`
	Button    int         `json:"button"`
	IsPrimary bool        `json:"isPrimary"`
	X         float64     `json:"clientX"`
	Y         float64     `json:"clientY"`
	// FreeAspect модификатор (Shift), отключающий сохранение пропорций
	FreeAspect bool    `json:"shiftKey"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

func (ev PointerEvent) primary() bool {
	switch ev.Kind {
	case Touch:
		return ev.IsPrimary
	default:
		return ev.Button == 0
	}
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Effect int

const (
	None Effect = iota
	// Present показать промежуточный размер
	Present
	// Commit сохранить размер в документе
	Commit
	// Restore вернуть отображение к исходному размеру
	Restore
	// Reset вернуть узел к адаптивному размеру
	Reset
)

type Result struct {
	Effect Effect
	Size   Size
	// Start размер при начале перетаскивания, заполняется для Commit
	Start Size
}

type Machine struct {
	cfg Config

	dragging  bool
	pointerID int
	startX    float64
	startY    float64
	startW    float64
	startH    float64
	ratio     float64
	last      Size
}

func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

func (m *Machine) Config() Config {
	return m.cfg
}

func (m *Machine) Dragging() bool {
	return m.dragging
}

// Last последний показанный во время перетаскивания размер.
func (m *Machine) Last() (Size, bool) {
	return m.last, m.dragging
}

// PointerDown начинает перетаскивание основной кнопкой или первым касанием.
// Во время перетаскивания другие указатели игнорируются.
func (m *Machine) PointerDown(ev PointerEvent) Result {
	if m.dragging || !ev.primary() {
		return Result{}
	}
	m.dragging = true
	m.pointerID = ev.ID
	m.startX, m.startY = ev.X, ev.Y
	m.startW, m.startH = ev.Width, ev.Height
	if ev.Width > 0 && ev.Height > 0 {
		m.ratio = ev.Width / ev.Height
	} else {
		m.ratio = defaultRatio
	}
	// без движения фиксируется исходный размер, приведенный к пределам
	m.last = m.compute(0, 0, false)
	return Result{}
}

func (m *Machine) PointerMove(ev PointerEvent) Result {
	if !m.dragging || ev.ID != m.pointerID {
		return Result{}
	}
	m.last = m.compute(ev.X-m.startX, ev.Y-m.startY, ev.FreeAspect)
	return Result{Effect: Present, Size: m.last}
}

func (m *Machine) compute(dx, dy float64, free bool) Size {
	cfg := m.cfg
	if cfg.LockAspectRatio && !free {
		// Диапазон ширины сужается так, чтобы высота осталась в допустимых пределах.
		lo := max(float64(cfg.MinWidth), float64(cfg.MinHeight)*m.ratio)
		hi := min(float64(cfg.MaxWidth), float64(cfg.MaxHeight)*m.ratio)
		loInt, hiInt := int(math.Ceil(lo)), int(math.Floor(hi))
		if loInt > hiInt {
			loInt, hiInt = cfg.MinWidth, cfg.MaxWidth
		}
		w := clamp(int(math.Round(m.startW+dx)), loInt, hiInt)
		h := clamp(int(math.Round(float64(w)/m.ratio)), cfg.MinHeight, cfg.MaxHeight)
		return Size{Width: w, Height: h}
	}
	return Size{
		Width:  clamp(int(math.Round(m.startW+dx)), cfg.MinWidth, cfg.MaxWidth),
		Height: clamp(int(math.Round(m.startH+dy)), cfg.MinHeight, cfg.MaxHeight),
	}
}

// PointerUp завершает перетаскивание и фиксирует размер.
func (m *Machine) PointerUp(ev PointerEvent) Result {
	if !m.dragging || ev.ID != m.pointerID {
		return Result{}
	}
	return m.finish()
}

// PointerCancel ведет себя как отпускание: последний показанный размер сохраняется.
func (m *Machine) PointerCancel(ev PointerEvent) Result {
	return m.PointerUp(ev)
}

// Blur потеря фокуса окна во время перетаскивания.
func (m *Machine) Blur() Result {
	if !m.dragging {
		return Result{}
	}
	if m.cfg.BlurPolicy == BlurDiscard {
		m.dragging = false
		return Result{Effect: Restore, Size: m.start()}
	}
	return m.finish()
}

func (m *Machine) finish() Result {
	m.dragging = false
	return Result{Effect: Commit, Size: m.last, Start: m.start()}
}

func (m *Machine) start() Size {
	return Size{Width: int(math.Round(m.startW)), Height: int(math.Round(m.startH))}
}

// DoubleClick вне перетаскивания сбрасывает размер.
func (m *Machine) DoubleClick() Result {
	if m.dragging {
		return Result{}
	}
	return Result{Effect: Reset}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
