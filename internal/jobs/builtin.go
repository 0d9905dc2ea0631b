package jobs

import "github.com/shaiso/dspreview/internal/provider"

// Builtin возвращает реестр со встроенными типами задач.
func Builtin(p provider.Provider, firstRowsMax int) *Registry {
	r, err := NewRegistry(NewSplits(p), NewFirstRows(p, firstRowsMax))
	if err != nil {
		panic(err)
	}
	return r
}
