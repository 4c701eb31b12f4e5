// Package transformer defines the dataset-to-dataset step used by the
// cleaning pipelines, plus the typed row coercion used when a cleaned
// dataset is exported to a database.
package transformer

import "csvclean/internal/dataset"

// Transformer produces a new dataset from in. Implementations must not
// modify in.
type Transformer interface {
	Apply(in *dataset.Dataset) *dataset.Dataset
}

// Func adapts a plain function to Transformer.
type Func func(*dataset.Dataset) *dataset.Dataset

func (f Func) Apply(in *dataset.Dataset) *dataset.Dataset { return f(in) }

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in *dataset.Dataset) *dataset.Dataset {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}
