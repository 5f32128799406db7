package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Tag - иерархическая метка вида "Status.Sprinting".
// Запрос "Status" совпадает с активным "Status.Sprinting", обратное неверно.
type Tag string

// Matches - true, если t совпадает с query или является его потомком.
func (t Tag) Matches(query Tag) bool {
	if t == query {
		return true
	}
	return strings.HasPrefix(string(t), string(query)) &&
		len(t) > len(query) && t[len(query)] == '.'
}

// ParseTags переводит строки из каталога в теги, пропуская пустые.
func ParseTags(raw []string) []Tag {
	tags := make([]Tag, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			tags = append(tags, Tag(s))
		}
	}
	return tags
}

// TagContainer - мультимножество тегов.
// Один тег может быть выдан несколькими действиями (стакающиеся эффекты),
// поэтому храним счетчик выдач, а не флаг.
type TagContainer struct {
	counts map[Tag]int
}

func NewTagContainer() *TagContainer {
	return &TagContainer{counts: make(map[Tag]int)}
}

// AppendTags добавляет по одной выдаче каждого тега.
func (c *TagContainer) AppendTags(tags []Tag) {
	for _, t := range tags {
		c.counts[t]++
	}
}

// RemoveTags снимает по одной выдаче каждого тега.
// Выдачи других действий не трогаем.
func (c *TagContainer) RemoveTags(tags []Tag) {
	for _, t := range tags {
		n, ok := c.counts[t]
		if !ok {
			continue
		}
		if n <= 1 {
			delete(c.counts, t)
		} else {
			c.counts[t] = n - 1
		}
	}
}

// HasTag проверяет наличие тега (с учетом иерархии).
func (c *TagContainer) HasTag(query Tag) bool {
	if c.counts[query] > 0 {
		return true
	}
	for t := range c.counts {
		if t.Matches(query) {
			return true
		}
	}
	return false
}

// HasAny - true, если есть хотя бы один из тегов.
func (c *TagContainer) HasAny(queries []Tag) bool {
	for _, q := range queries {
		if c.HasTag(q) {
			return true
		}
	}
	return false
}

// Count возвращает число выдач конкретного тега (без иерархии).
func (c *TagContainer) Count(t Tag) int {
	return c.counts[t]
}

// Len - число выдач всего.
func (c *TagContainer) Len() int {
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}

// Tags возвращает отсортированный список уникальных тегов.
func (c *TagContainer) Tags() []Tag {
	result := make([]Tag, 0, len(c.counts))
	for t := range c.counts {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// String - для отладочного вывода: "Status.Burning, Status.Sprinting x2"
func (c *TagContainer) String() string {
	tags := c.Tags()
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		if n := c.counts[t]; n > 1 {
			parts = append(parts, string(t)+" x"+strconv.Itoa(n))
		} else {
			parts = append(parts, string(t))
		}
	}
	return strings.Join(parts, ", ")
}
