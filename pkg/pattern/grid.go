package pattern

import (
	"math"
	"sort"

	"github.com/mlange-42/ppa/pkg/geom"
)

// Patterns below this size are queried by linear scan; the grid only
// pays off once bucket lookups beat a handful of distance checks.
const bruteForceThreshold = 16

// gridIndex is a bucket grid over a point set. The cell size is chosen
// near the mean nearest-neighbour spacing sqrt(|W|/n) so that expected
// occupancy is O(1) points per cell. Read-only after construction.
type gridIndex struct {
	points  []geom.Point
	originX float64
	originY float64
	cell    float64
	nx, ny  int
	buckets [][]int
	brute   bool
}

func buildGrid(points []geom.Point, w geom.Window) *gridIndex {
	g := &gridIndex{points: points}
	if len(points) < bruteForceThreshold {
		g.brute = true
		return g
	}

	b := w.Bounds()
	g.cell = math.Sqrt(w.Area() / float64(len(points)))
	if !(g.cell > 0) || math.IsInf(g.cell, 0) {
		g.brute = true
		return g
	}
	g.originX = b.XMin
	g.originY = b.YMin
	g.nx = int(math.Ceil(b.Width() / g.cell))
	g.ny = int(math.Ceil(b.Height() / g.cell))
	if g.nx < 1 {
		g.nx = 1
	}
	if g.ny < 1 {
		g.ny = 1
	}

	g.buckets = make([][]int, g.nx*g.ny)
	for i, p := range points {
		cx, cy := g.cellOf(p)
		g.buckets[cy*g.nx+cx] = append(g.buckets[cy*g.nx+cx], i)
	}
	return g
}

// cellOf returns the clamped cell coordinates containing p.
func (g *gridIndex) cellOf(p geom.Point) (int, int) {
	cx := int(math.Floor((p.X - g.originX) / g.cell))
	cy := int(math.Floor((p.Y - g.originY) / g.cell))
	return clamp(cx, g.nx-1), clamp(cy, g.ny-1)
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func (g *gridIndex) neighbors(center geom.Point, r float64) []int {
	rSq := r * r
	var out []int

	if g.brute {
		for i, p := range g.points {
			if p.DistanceSq(center) <= rSq {
				out = append(out, i)
			}
		}
		return out
	}

	cx0 := clamp(int(math.Floor((center.X-r-g.originX)/g.cell)), g.nx-1)
	cx1 := clamp(int(math.Floor((center.X+r-g.originX)/g.cell)), g.nx-1)
	cy0 := clamp(int(math.Floor((center.Y-r-g.originY)/g.cell)), g.ny-1)
	cy1 := clamp(int(math.Floor((center.Y+r-g.originY)/g.cell)), g.ny-1)

	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			for _, i := range g.buckets[cy*g.nx+cx] {
				if g.points[i].DistanceSq(center) <= rSq {
					out = append(out, i)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

func (g *gridIndex) nearest(center geom.Point, exclude int) (int, float64) {
	best := -1
	bestD := math.Inf(1)

	consider := func(i int) {
		if i == exclude {
			return
		}
		d := g.points[i].Distance(center)
		if d < bestD || (d == bestD && i < best) {
			best = i
			bestD = d
		}
	}

	if g.brute {
		for i := range g.points {
			consider(i)
		}
		return best, bestD
	}

	ccx, ccy := g.cellOf(center)
	maxRing := g.nx + g.ny
	for ring := 0; ring <= maxRing; ring++ {
		// Cells at Chebyshev distance k are at least (k-1) cell widths
		// away from any position inside the centre cell.
		if best >= 0 && float64(ring-1)*g.cell > bestD {
			break
		}
		g.visitRing(ccx, ccy, ring, consider)
	}
	return best, bestD
}

func (g *gridIndex) kNearest(center geom.Point, k int, exclude int) []Neighbor {
	var cands []Neighbor

	collect := func(i int) {
		if i == exclude {
			return
		}
		cands = append(cands, Neighbor{Index: i, Distance: g.points[i].Distance(center)})
	}

	if g.brute {
		for i := range g.points {
			collect(i)
		}
		sortNeighbors(cands)
		if len(cands) > k {
			cands = cands[:k]
		}
		return cands
	}

	ccx, ccy := g.cellOf(center)
	maxRing := g.nx + g.ny
	kth := math.Inf(1)
	for ring := 0; ring <= maxRing; ring++ {
		if len(cands) >= k && float64(ring-1)*g.cell > kth {
			break
		}
		g.visitRing(ccx, ccy, ring, collect)
		if len(cands) >= k {
			sortNeighbors(cands)
			kth = cands[k-1].Distance
		}
	}
	sortNeighbors(cands)
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands
}

// visitRing calls fn for every point index stored in cells at Chebyshev
// distance ring from (ccx, ccy). Out-of-range cells are skipped.
func (g *gridIndex) visitRing(ccx, ccy, ring int, fn func(int)) {
	visit := func(cx, cy int) {
		if cx < 0 || cx >= g.nx || cy < 0 || cy >= g.ny {
			return
		}
		for _, i := range g.buckets[cy*g.nx+cx] {
			fn(i)
		}
	}

	if ring == 0 {
		visit(ccx, ccy)
		return
	}
	for cx := ccx - ring; cx <= ccx+ring; cx++ {
		visit(cx, ccy-ring)
		visit(cx, ccy+ring)
	}
	for cy := ccy - ring + 1; cy <= ccy+ring-1; cy++ {
		visit(ccx-ring, cy)
		visit(ccx+ring, cy)
	}
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Distance != ns[j].Distance {
			return ns[i].Distance < ns[j].Distance
		}
		return ns[i].Index < ns[j].Index
	})
}
