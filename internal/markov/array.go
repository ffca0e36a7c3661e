package markov

import "fmt"

// Array is a dense row-major numeric array used as raw rate matrix input.
// A rank-2 array is one chain; a rank-3 array is a batch of N chains.
type Array struct {
	Shape []int
	Data  []float64
}

// Matrix builds a rank-2 Array from nested rows.
func Matrix(rows [][]float64) (Array, error) {
	if len(rows) == 0 {
		return Array{}, fmt.Errorf("matrix: no rows: %w", ErrShape)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Array{}, fmt.Errorf("matrix: row %d has %d entries, want %d: %w", i, len(row), cols, ErrShape)
		}
		data = append(data, row...)
	}
	return Array{Shape: []int{len(rows), cols}, Data: data}, nil
}

// Stack builds a rank-3 Array from a batch of nested matrices.
func Stack(mats [][][]float64) (Array, error) {
	if len(mats) == 0 {
		return Array{}, fmt.Errorf("stack: no matrices: %w", ErrShape)
	}
	first, err := Matrix(mats[0])
	if err != nil {
		return Array{}, fmt.Errorf("stack: matrix 0: %w", err)
	}
	data := make([]float64, 0, len(mats)*len(first.Data))
	data = append(data, first.Data...)
	for n := 1; n < len(mats); n++ {
		m, err := Matrix(mats[n])
		if err != nil {
			return Array{}, fmt.Errorf("stack: matrix %d: %w", n, err)
		}
		if m.Shape[0] != first.Shape[0] || m.Shape[1] != first.Shape[1] {
			return Array{}, fmt.Errorf("stack: matrix %d is %dx%d, want %dx%d: %w",
				n, m.Shape[0], m.Shape[1], first.Shape[0], first.Shape[1], ErrShape)
		}
		data = append(data, m.Data...)
	}
	return Array{Shape: []int{len(mats), first.Shape[0], first.Shape[1]}, Data: data}, nil
}

// Size is the product of the shape.
func (a Array) Size() int {
	if len(a.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Squeeze drops every axis of length one. The data is shared.
func (a Array) Squeeze() Array {
	shape := make([]int, 0, len(a.Shape))
	for _, d := range a.Shape {
		if d != 1 {
			shape = append(shape, d)
		}
	}
	return Array{Shape: shape, Data: a.Data}
}

// Clone returns a deep copy.
func (a Array) Clone() Array {
	shape := make([]int, len(a.Shape))
	copy(shape, a.Shape)
	data := make([]float64, len(a.Data))
	copy(data, a.Data)
	return Array{Shape: shape, Data: data}
}
