package domain

// SplitFullName — полное имя split: identity, используемая при diff'е
// содержимого кэша между пересчётами.
type SplitFullName struct {
	Dataset string `json:"dataset"`
	Config  string `json:"config"`
	Split   string `json:"split"`
}

// SplitSet — множество SplitFullName.
type SplitSet map[SplitFullName]struct{}

// NewSplitSet собирает множество из списка.
func NewSplitSet(items ...SplitFullName) SplitSet {
	s := make(SplitSet, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has проверяет наличие элемента.
func (s SplitSet) Has(item SplitFullName) bool {
	_, ok := s[item]
	return ok
}

// Difference возвращает элементы s, отсутствующие в other.
// Порядок результата не определён.
func (s SplitSet) Difference(other SplitSet) []SplitFullName {
	var out []SplitFullName
	for it := range s {
		if !other.Has(it) {
			out = append(out, it)
		}
	}
	return out
}
