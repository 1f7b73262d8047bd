package entity

import (
	"fmt"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
)

const EmptyOwner = ""

// Edge is a segment between two adjacent dots, identified by its start
// dot and orientation. A horizontal edge joins dot (Row, Col) with
// (Row, Col+1); a vertical edge joins (Row, Col) with (Row+1, Col).
type Edge struct {
	Row        int  `json:"row"`
	Col        int  `json:"col"`
	Horizontal bool `json:"horizontal"`
}

// Box is a unit cell whose top-left dot is (Row, Col).
type Box struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Board is a Rows x Cols grid of boxes between (Rows+1) x (Cols+1) dots.
// Edge and box ownership is stored as player marks; EmptyOwner means
// undrawn/unowned.
type Board struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	Horizontal [][]string `json:"horizontal"` // (Rows+1) x Cols
	Vertical   [][]string `json:"vertical"`   // Rows x (Cols+1)
	Boxes      [][]string `json:"boxes"`      // Rows x Cols
}

func NewBoard(rows, cols int) *Board {
	board := &Board{
		Rows:       rows,
		Cols:       cols,
		Horizontal: make([][]string, rows+1),
		Vertical:   make([][]string, rows),
		Boxes:      make([][]string, rows),
	}

	for i := range board.Horizontal {
		board.Horizontal[i] = make([]string, cols)
	}

	for i := range board.Vertical {
		board.Vertical[i] = make([]string, cols+1)
	}

	for i := range board.Boxes {
		board.Boxes[i] = make([]string, cols)
	}

	return board
}

func (that *Board) IsEdgeDrawn(edge Edge) bool {
	if !that.isValidEdge(edge) {
		return false
	}

	return that.edgeOwner(edge) != EmptyOwner
}

// DrawEdge marks the edge as drawn by owner and returns the boxes this
// draw completed. The edge is immutable afterwards.
func (that *Board) DrawEdge(edge Edge, owner string) ([]Box, error) {
	if !that.isValidEdge(edge) {
		return nil, fmt.Errorf("%w: row %d col %d", apperror.ErrInvalidEdge, edge.Row, edge.Col)
	}

	if that.edgeOwner(edge) != EmptyOwner {
		return nil, fmt.Errorf("%w: row %d col %d", apperror.ErrEdgeAlreadyDrawn, edge.Row, edge.Col)
	}

	if edge.Horizontal {
		that.Horizontal[edge.Row][edge.Col] = owner
	} else {
		that.Vertical[edge.Row][edge.Col] = owner
	}

	var completed []Box
	for _, box := range that.AdjacentBoxes(edge) {
		if that.Boxes[box.Row][box.Col] == EmptyOwner && that.isBoxClosed(box) {
			that.Boxes[box.Row][box.Col] = owner
			completed = append(completed, box)
		}
	}

	return completed, nil
}

// AdjacentBoxes returns the boxes bordered by the edge: one for a
// boundary edge, two for an interior edge.
func (that *Board) AdjacentBoxes(edge Edge) []Box {
	var boxes []Box

	if edge.Horizontal {
		if edge.Row > 0 {
			boxes = append(boxes, Box{Row: edge.Row - 1, Col: edge.Col})
		}
		if edge.Row < that.Rows {
			boxes = append(boxes, Box{Row: edge.Row, Col: edge.Col})
		}
		return boxes
	}

	if edge.Col > 0 {
		boxes = append(boxes, Box{Row: edge.Row, Col: edge.Col - 1})
	}
	if edge.Col < that.Cols {
		boxes = append(boxes, Box{Row: edge.Row, Col: edge.Col})
	}

	return boxes
}

// IsComplete reports whether every box is owned, which is equivalent to
// every edge being drawn.
func (that *Board) IsComplete() bool {
	for _, row := range that.Boxes {
		for _, owner := range row {
			if owner == EmptyOwner {
				return false
			}
		}
	}

	return true
}

func (that *Board) TotalBoxes() int {
	return that.Rows * that.Cols
}

func (that *Board) OwnedBoxes(owner string) int {
	count := 0
	for _, row := range that.Boxes {
		for _, boxOwner := range row {
			if boxOwner == owner {
				count++
			}
		}
	}

	return count
}

func (that *Board) isValidEdge(edge Edge) bool {
	if edge.Horizontal {
		return edge.Row >= 0 && edge.Row <= that.Rows && edge.Col >= 0 && edge.Col < that.Cols
	}

	return edge.Row >= 0 && edge.Row < that.Rows && edge.Col >= 0 && edge.Col <= that.Cols
}

func (that *Board) edgeOwner(edge Edge) string {
	if edge.Horizontal {
		return that.Horizontal[edge.Row][edge.Col]
	}

	return that.Vertical[edge.Row][edge.Col]
}

func (that *Board) isBoxClosed(box Box) bool {
	return that.Horizontal[box.Row][box.Col] != EmptyOwner &&
		that.Horizontal[box.Row+1][box.Col] != EmptyOwner &&
		that.Vertical[box.Row][box.Col] != EmptyOwner &&
		that.Vertical[box.Row][box.Col+1] != EmptyOwner
}

// Clone returns a deep copy, used for snapshots handed outside the
// per-game lock.
func (that *Board) Clone() *Board {
	clone := &Board{
		Rows:       that.Rows,
		Cols:       that.Cols,
		Horizontal: cloneGrid(that.Horizontal),
		Vertical:   cloneGrid(that.Vertical),
		Boxes:      cloneGrid(that.Boxes),
	}

	return clone
}

func cloneGrid(grid [][]string) [][]string {
	clone := make([][]string, len(grid))
	for i, row := range grid {
		clone[i] = make([]string, len(row))
		copy(clone[i], row)
	}

	return clone
}
