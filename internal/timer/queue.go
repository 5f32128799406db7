package timer

// entry - элемент очереди таймеров
type entry struct {
	handle Handle
	fireAt float64 // Мировое время срабатывания (сек)
	period float64 // Для зацикленных таймеров: интервал повтора
	loop   bool
	seq    uint64 // Порядок постановки. При равном fireAt раньше срабатывает тот, кто раньше поставлен
	fn     func()
	index  int // Индекс в куче (нужен для Remove/Fix)
}

// queue реализует heap.Interface (MinHeap по времени срабатывания)
type queue []*entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].fireAt == q[j].fireAt {
		return q[i].seq < q[j].seq
	}
	return q[i].fireAt < q[j].fireAt
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // избегаем утечки памяти
	e.index = -1   // для безопасности
	*q = old[0 : n-1]
	return e
}
