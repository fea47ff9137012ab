package track

// DistanceOracle answers "how far to the nearest finish tile" in pixels via
// breadth-first search over 4-connected walkable cells. Results are cached
// per cell in a bounded FIFO cache; a stale or evicted entry only costs a
// re-search, never correctness.
type DistanceOracle struct {
	tiles    *TileMap
	cache    *FIFOCache[Cell, float32]
	sentinel float32

	// Reusable BFS scratch (cleared between searches).
	visited []bool
	queue   []bfsNode
}

type bfsNode struct {
	cell  Cell
	steps int
}

// NewDistanceOracle creates an oracle over the given map.
// sentinel is the distance reported when no finish tile is reachable.
func NewDistanceOracle(tiles *TileMap, cacheSize int, sentinel float64) *DistanceOracle {
	return &DistanceOracle{
		tiles:    tiles,
		cache:    NewFIFOCache[Cell, float32](cacheSize),
		sentinel: float32(sentinel),
		visited:  make([]bool, tiles.Rows()*tiles.Cols()),
	}
}

// Sentinel returns the no-path distance value. Callers must treat it as
// "no measurable progress possible", never as a real distance.
func (o *DistanceOracle) Sentinel() float32 { return o.sentinel }

// DistanceFrom returns the shortest-path distance in pixels from the cell to
// the nearest finish tile, or the sentinel when no finish is reachable.
func (o *DistanceOracle) DistanceFrom(cell Cell) float32 {
	if d, ok := o.cache.Get(cell); ok {
		return d
	}
	d := o.search(cell)
	o.cache.Put(cell, d)
	return d
}

// DistanceFromWorld is DistanceFrom for a world position in pixels.
func (o *DistanceOracle) DistanceFromWorld(x, y float32) float32 {
	return o.DistanceFrom(o.tiles.CellAtWorld(x, y))
}

// search runs a BFS from start, stopping at the first finish cell reached.
// Multiple finish tiles are supported; BFS naturally finds the nearest.
func (o *DistanceOracle) search(start Cell) float32 {
	if o.tiles.FinishCount() == 0 {
		return o.sentinel
	}
	if o.tiles.KindAt(start.Row, start.Col) == Finish {
		return 0
	}
	if !o.tiles.IsWalkable(start) {
		return o.sentinel
	}

	cols := o.tiles.Cols()
	for i := range o.visited {
		o.visited[i] = false
	}
	o.queue = o.queue[:0]

	o.visited[start.Row*cols+start.Col] = true
	o.queue = append(o.queue, bfsNode{cell: start})

	for len(o.queue) > 0 {
		node := o.queue[0]
		o.queue = o.queue[1:]

		neighbors := [4]Cell{
			{Row: node.cell.Row - 1, Col: node.cell.Col},
			{Row: node.cell.Row + 1, Col: node.cell.Col},
			{Row: node.cell.Row, Col: node.cell.Col - 1},
			{Row: node.cell.Row, Col: node.cell.Col + 1},
		}
		for _, n := range neighbors {
			kind := o.tiles.KindAt(n.Row, n.Col)
			if kind == Wall {
				continue
			}
			idx := n.Row*cols + n.Col
			if o.visited[idx] {
				continue
			}
			if kind == Finish {
				return float32(node.steps+1) * o.tiles.CellSize()
			}
			o.visited[idx] = true
			o.queue = append(o.queue, bfsNode{cell: n, steps: node.steps + 1})
		}
	}

	return o.sentinel
}
