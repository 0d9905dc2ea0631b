package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/shaiso/dspreview/internal/apperr"
	"github.com/shaiso/dspreview/internal/provider"
)

const (
	// FirstRowsType — первые строки одного split'а.
	FirstRowsType    = "/first-rows"
	firstRowsVersion = "1.0.0"

	// DefaultFirstRowsMax — сколько строк берётся, если не задано.
	DefaultFirstRowsMax = 100
)

// FirstRowsContent — результат /first-rows.
type FirstRowsContent struct {
	Dataset   string            `json:"dataset"`
	Config    string            `json:"config"`
	Split     string            `json:"split"`
	Features  json.RawMessage   `json:"features"`
	Rows      []json.RawMessage `json:"rows"`
	Truncated bool              `json:"truncated"`
}

// NewFirstRows создаёт дескриптор /first-rows.
func NewFirstRows(p provider.Provider, maxRows int) Type {
	if maxRows <= 0 {
		maxRows = DefaultFirstRowsMax
	}
	return Type{
		Name:    FirstRowsType,
		Version: firstRowsVersion,
		Level:   LevelSplit,
		Compute: computeFirstRows(p, maxRows),
	}
}

func computeFirstRows(p provider.Provider, maxRows int) func(context.Context, Input) (json.RawMessage, error) {
	return func(ctx context.Context, in Input) (json.RawMessage, error) {
		splits, err := p.ListSplits(ctx, in.Dataset, in.Config, in.Token)
		if err != nil {
			if provider.IsEmptyDataset(err) {
				return nil, apperr.New(apperr.CodeEmptyDataset, "The dataset is empty.", err)
			}
			return nil, apperr.New(apperr.CodeSplitsNames, "Cannot get the split names for the dataset.", err)
		}
		if !slices.Contains(splits, in.Split) {
			return nil, apperr.New(apperr.CodeSplitNotFound, "The config or the split does not exist in the dataset.", nil)
		}

		rows, err := p.FirstRows(ctx, in.Dataset, in.Config, in.Split, in.Token, maxRows)
		if err != nil {
			if provider.IsEmptyDataset(err) {
				return nil, apperr.New(apperr.CodeEmptyDataset, "The dataset is empty.", err)
			}
			return nil, apperr.New(apperr.CodeStreamingRows,
				"Cannot load the dataset split (in streaming mode) to extract the first rows.", err)
		}

		if len(rows.Rows) > maxRows {
			rows.Rows = rows.Rows[:maxRows]
			rows.Truncated = true
		}
		if rows.Rows == nil {
			rows.Rows = []json.RawMessage{}
		}

		content, err := json.Marshal(FirstRowsContent{
			Dataset:   in.Dataset,
			Config:    in.Config,
			Split:     in.Split,
			Features:  rows.Features,
			Rows:      rows.Rows,
			Truncated: rows.Truncated,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal first rows: %w", err)
		}
		return content, nil
	}
}
