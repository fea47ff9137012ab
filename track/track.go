// Package track provides the tile grid the simulation runs on and the
// finish-distance oracle used for progress scoring.
package track

import (
	"fmt"

	"roadevo/config"
)

// TileKind classifies a grid cell.
type TileKind uint8

const (
	Road TileKind = iota
	Wall
	Finish
	Spawn
)

// Cell addresses a tile by grid row and column.
type Cell struct {
	Row, Col int
}

// TileMap is an immutable grid of tile kinds with a fixed pixel cell size.
// Out-of-bounds queries behave like walls so sensing and collision code
// never needs a separate boundary case.
type TileMap struct {
	tiles    []TileKind
	rows     int
	cols     int
	cellSize float32
	spawn    Cell
	finishes int
}

// Parse builds a TileMap from rows of digit codes (0 = road, 1 = wall,
// 2 = finish, 3 = spawn). The grid must be rectangular and contain at least
// one spawn tile; violations fail with config.ErrInvalidConfiguration.
func Parse(rows []string, cellSize float64) (*TileMap, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: track grid has zero dimensions", config.ErrInvalidConfiguration)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("%w: track cell size %g, must be positive", config.ErrInvalidConfiguration, cellSize)
	}

	cols := len(rows[0])
	m := &TileMap{
		tiles:    make([]TileKind, len(rows)*cols),
		rows:     len(rows),
		cols:     cols,
		cellSize: float32(cellSize),
		spawn:    Cell{Row: -1, Col: -1},
	}

	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: track row %d has %d cells, want %d", config.ErrInvalidConfiguration, r, len(row), cols)
		}
		for c, code := range []byte(row) {
			var kind TileKind
			switch code {
			case '0':
				kind = Road
			case '1':
				kind = Wall
			case '2':
				kind = Finish
				m.finishes++
			case '3':
				kind = Spawn
				if m.spawn.Row < 0 {
					m.spawn = Cell{Row: r, Col: c}
				}
			default:
				return nil, fmt.Errorf("%w: track cell (%d,%d) has unknown code %q", config.ErrInvalidConfiguration, r, c, code)
			}
			m.tiles[r*cols+c] = kind
		}
	}

	if m.spawn.Row < 0 {
		return nil, fmt.Errorf("%w: track has no spawn tile", config.ErrInvalidConfiguration)
	}

	return m, nil
}

// Rows returns the grid height in cells.
func (m *TileMap) Rows() int { return m.rows }

// Cols returns the grid width in cells.
func (m *TileMap) Cols() int { return m.cols }

// CellSize returns the tile edge length in pixels.
func (m *TileMap) CellSize() float32 { return m.cellSize }

// FinishCount returns the number of finish tiles in the grid.
func (m *TileMap) FinishCount() int { return m.finishes }

// KindAt returns the tile kind at the given cell. Out of bounds is Wall.
func (m *TileMap) KindAt(row, col int) TileKind {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		return Wall
	}
	return m.tiles[row*m.cols+col]
}

// IsWalkable reports whether agents may occupy the cell.
func (m *TileMap) IsWalkable(cell Cell) bool {
	return m.KindAt(cell.Row, cell.Col) != Wall
}

// KindAtWorld returns the tile kind at a world position in pixels.
func (m *TileMap) KindAtWorld(x, y float32) TileKind {
	cell := m.CellAtWorld(x, y)
	return m.KindAt(cell.Row, cell.Col)
}

// CellAtWorld converts a world position to its containing cell. Positions
// outside the grid map to out-of-range cells, which KindAt treats as Wall.
func (m *TileMap) CellAtWorld(x, y float32) Cell {
	col := int(x / m.cellSize)
	row := int(y / m.cellSize)
	if x < 0 {
		col = -1
	}
	if y < 0 {
		row = -1
	}
	return Cell{Row: row, Col: col}
}

// CellCenter returns the world position of a cell's center.
func (m *TileMap) CellCenter(cell Cell) (x, y float32) {
	x = (float32(cell.Col) + 0.5) * m.cellSize
	y = (float32(cell.Row) + 0.5) * m.cellSize
	return
}

// SpawnPoint returns the world position of the first spawn tile's center.
func (m *TileMap) SpawnPoint() (x, y float32) {
	return m.CellCenter(m.spawn)
}
