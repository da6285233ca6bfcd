package transform

// StepMap описывает, как шаг сдвигает позиции: набор троек (начало, старый размер, новый размер).
type StepMap struct {
	ranges []int
}

// EmptyMap карта шага, который не меняет позиции (например, смена атрибутов).
var EmptyMap = StepMap{}

func NewStepMap(start, oldSize, newSize int) StepMap {
	if oldSize == 0 && newSize == 0 {
		return EmptyMap
	}
	return StepMap{ranges: []int{start, oldSize, newSize}}
}

// Map переносит позицию. assoc задает сторону, к которой прилипает позиция на границе
// вставки: отрицательное значение влево, иначе вправо.
func (m StepMap) Map(pos int, assoc int) int {
	p, _ := m.MapResult(pos, assoc)
	return p
}

// MapResult переносит позицию и сообщает, попала ли она внутрь удаленного диапазона.
func (m StepMap) MapResult(pos int, assoc int) (int, bool) {
	diff := 0
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		if start > pos {
			break
		}
		oldSize, newSize := m.ranges[i+1], m.ranges[i+2]
		end := start + oldSize
		if pos <= end {
			side := assoc
			if oldSize > 0 {
				switch pos {
				case start:
					side = -1
				case end:
					side = 1
				}
			}
			result := start + diff
			if side >= 0 {
				result += newSize
			}
			deleted := oldSize > 0 && pos > start && pos < end
			return result, deleted
		}
		diff += newSize - oldSize
	}
	return pos + diff, false
}

// Covers сообщает, удален ли узел, начинающийся в pos, этим шагом.
func (m StepMap) Covers(pos int) bool {
	for i := 0; i < len(m.ranges); i += 3 {
		start, oldSize := m.ranges[i], m.ranges[i+1]
		if oldSize > 0 && start <= pos && pos < start+oldSize {
			return true
		}
	}
	return false
}

// Mapping последовательность карт шагов одной транзакции.
type Mapping struct {
	maps []StepMap
}

func (m *Mapping) AppendMap(sm StepMap) {
	m.maps = append(m.maps, sm)
}

func (m *Mapping) Maps() []StepMap {
	return m.maps
}

func (m *Mapping) Map(pos int, assoc int) int {
	for _, sm := range m.maps {
		pos = sm.Map(pos, assoc)
	}
	return pos
}

// MapResult переносит позицию через все карты; deleted истинно, если позиция хотя бы раз
// попала внутрь удаленного диапазона.
func (m *Mapping) MapResult(pos int, assoc int) (int, bool) {
	deleted := false
	for _, sm := range m.maps {
		var d bool
		pos, d = sm.MapResult(pos, assoc)
		deleted = deleted || d
	}
	return pos, deleted
}

// MapNode переносит позицию начала узла. ok ложно, если узел был удален.
func (m *Mapping) MapNode(pos int) (int, bool) {
	for _, sm := range m.maps {
		if sm.Covers(pos) {
			return 0, false
		}
		pos = sm.Map(pos, 1)
	}
	return pos, true
}
