package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shaiso/dspreview/internal/apperr"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/provider"
)

const (
	// SplitsType — список split'ов датасета.
	SplitsType    = "/splits"
	splitsVersion = "2.0.0"
)

// SplitsContent — результат /splits.
type SplitsContent struct {
	Splits []domain.SplitFullName `json:"splits"`
}

// NewSplits создаёт дескриптор /splits.
func NewSplits(p provider.Provider) Type {
	return Type{
		Name:       SplitsType,
		Version:    splitsVersion,
		Level:      LevelDataset,
		Compute:    computeSplits(p),
		Entities:   splitsEntities,
		Downstream: FirstRowsType,
	}
}

// computeSplits: конфигурации сортируются по имени, порядок split'ов
// внутри конфигурации сохраняется как у провайдера.
func computeSplits(p provider.Provider) func(context.Context, Input) (json.RawMessage, error) {
	return func(ctx context.Context, in Input) (json.RawMessage, error) {
		items, err := splitFullNames(ctx, p, in)
		if err != nil {
			if provider.IsEmptyDataset(err) {
				return nil, apperr.New(apperr.CodeEmptyDataset, "The dataset is empty.", err)
			}
			return nil, apperr.New(apperr.CodeSplitsNames, "Cannot get the split names for the dataset.", err)
		}

		content, err := json.Marshal(SplitsContent{Splits: items})
		if err != nil {
			return nil, fmt.Errorf("marshal splits: %w", err)
		}
		return content, nil
	}
}

func splitFullNames(ctx context.Context, p provider.Provider, in Input) ([]domain.SplitFullName, error) {
	configs, err := p.ListConfigs(ctx, in.Dataset, in.Token)
	if err != nil {
		return nil, err
	}
	configs = append([]string(nil), configs...)
	sort.Strings(configs)

	items := []domain.SplitFullName{}
	for _, config := range configs {
		splits, err := p.ListSplits(ctx, in.Dataset, config, in.Token)
		if err != nil {
			return nil, err
		}
		for _, split := range splits {
			items = append(items, domain.SplitFullName{Dataset: in.Dataset, Config: config, Split: split})
		}
	}
	return items, nil
}

func splitsEntities(content json.RawMessage) (domain.SplitSet, error) {
	var c SplitsContent
	if err := json.Unmarshal(content, &c); err != nil {
		return nil, fmt.Errorf("decode splits content: %w", err)
	}
	return domain.NewSplitSet(c.Splits...), nil
}
