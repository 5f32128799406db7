package timer

import (
	"container/heap"
	"math"
)

// Handle - ссылка на запланированный таймер. Нулевое значение - "нет таймера".
type Handle uint64

// IsValid - true, если хэндл когда-либо был выдан.
func (h Handle) IsValid() bool { return h != 0 }

// Manager - общий сервис таймеров мира.
// Время двигается только через Advance (его вызывает тик симуляции),
// поэтому все "ожидания" - это колбэки на будущих тиках, ничего не блокирует поток.
// Не потокобезопасен: живет в горутине симуляции.
type Manager struct {
	now     float64
	seq     uint64
	queue   queue
	entries map[Handle]*entry
}

func NewManager() *Manager {
	return &Manager{
		queue:   make(queue, 0),
		entries: make(map[Handle]*entry),
	}
}

// Now - текущее мировое время в секундах.
func (m *Manager) Now() float64 {
	return m.now
}

// SetTo ставит часы ровно на t (клиентская сторона: время последнего кадра сервера).
// Вперед - как Advance, таймеры в интервале срабатывают. Назад часы просто
// откатываются, запланированные таймеры ждут своего времени.
func (m *Manager) SetTo(t float64) {
	if t >= m.now {
		m.Advance(t - m.now)
		return
	}
	m.now = t
}

// SetTimer планирует fn через delay секунд. При loop=true повторяет каждые delay секунд.
// Всегда возвращает новый хэндл.
func (m *Manager) SetTimer(delay float64, loop bool, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	m.seq++
	h := Handle(m.seq)
	e := &entry{
		handle: h,
		fireAt: m.now + delay,
		period: delay,
		loop:   loop && delay > 0,
		seq:    m.seq,
		fn:     fn,
	}
	heap.Push(&m.queue, e)
	m.entries[h] = e
	return h
}

// Clear отменяет таймер. Повторная отмена и отмена несуществующего - безопасный no-op.
func (m *Manager) Clear(h Handle) {
	e, ok := m.entries[h]
	if !ok {
		return
	}
	delete(m.entries, h)
	if e.index >= 0 {
		heap.Remove(&m.queue, e.index)
	}
}

// IsActive - true, если таймер еще запланирован.
func (m *Manager) IsActive(h Handle) bool {
	_, ok := m.entries[h]
	return ok
}

// Remaining возвращает время до срабатывания или -1, если таймера нет.
func (m *Manager) Remaining(h Handle) float64 {
	e, ok := m.entries[h]
	if !ok {
		return -1
	}
	return math.Max(0, e.fireAt-m.now)
}

// Len - число активных таймеров.
func (m *Manager) Len() int {
	return len(m.entries)
}

// Advance двигает часы на dt и по порядку вызывает все созревшие колбэки.
// Во время колбэка Now() равно моменту срабатывания этого таймера.
func (m *Manager) Advance(dt float64) {
	target := m.now + math.Max(0, dt)

	for m.queue.Len() > 0 {
		e := m.queue[0]
		if e.fireAt > target {
			break
		}
		m.now = e.fireAt

		if e.loop {
			// Переставляем до вызова: колбэк может сам себя отменить
			e.fireAt += e.period
			e.seq = m.nextSeq()
			heap.Fix(&m.queue, e.index)
		} else {
			heap.Pop(&m.queue)
			delete(m.entries, e.handle)
		}

		e.fn()
	}

	m.now = target
}

func (m *Manager) nextSeq() uint64 {
	m.seq++
	return m.seq
}
