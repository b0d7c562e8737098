package scoring

import (
	"container/heap"
	"sort"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
)

// KDTree indexes candidates by their normalized feature vectors for
// nearest-neighbor queries. Build once per pool, query many times.
type KDTree struct {
	root *kdNode
	size int
}

type kdNode struct {
	candidate models.Candidate
	vector    [9]float64
	axis      int
	left      *kdNode
	right     *kdNode
}

// BuildKDTree constructs the tree. Each level splits on the axis with the
// highest variance among the remaining points, at the median point of that
// axis.
func BuildKDTree(pool []models.Candidate) *KDTree {
	points := make([]kdPoint, len(pool))
	for i, c := range pool {
		points[i] = kdPoint{candidate: c, vector: Normalize(c.Features).Vector()}
	}
	return &KDTree{root: buildNode(points), size: len(points)}
}

// Size returns the number of indexed candidates.
func (t *KDTree) Size() int { return t.size }

type kdPoint struct {
	candidate models.Candidate
	vector    [9]float64
}

func buildNode(points []kdPoint) *kdNode {
	if len(points) == 0 {
		return nil
	}

	axis := widestAxis(points)
	sort.Slice(points, func(i, j int) bool {
		if points[i].vector[axis] != points[j].vector[axis] {
			return points[i].vector[axis] < points[j].vector[axis]
		}
		return points[i].candidate.ID < points[j].candidate.ID
	})

	median := len(points) / 2
	return &kdNode{
		candidate: points[median].candidate,
		vector:    points[median].vector,
		axis:      axis,
		left:      buildNode(points[:median]),
		right:     buildNode(points[median+1:]),
	}
}

// widestAxis picks the dimension with the largest variance over the points.
func widestAxis(points []kdPoint) int {
	var mean, variance [9]float64
	for _, p := range points {
		for i, v := range p.vector {
			mean[i] += v
		}
	}
	n := float64(len(points))
	for i := range mean {
		mean[i] /= n
	}
	for _, p := range points {
		for i, v := range p.vector {
			d := v - mean[i]
			variance[i] += d * d
		}
	}

	axis := 0
	for i := 1; i < len(variance); i++ {
		if variance[i] > variance[axis] {
			axis = i
		}
	}
	return axis
}

// NearestNeighbors returns the k candidates closest to the target, nearest
// first, ties broken by id. It keeps a bounded worst-first heap and prunes
// subtrees whose splitting plane is farther than the current worst match.
func (t *KDTree) NearestNeighbors(target models.Features, k int) []models.Candidate {
	if t == nil || t.root == nil || k <= 0 {
		return nil
	}

	tv := Normalize(target).Vector()
	h := &neighborHeap{}
	heap.Init(h)
	t.search(t.root, tv, k, h)

	return h.sorted()
}

func (t *KDTree) search(node *kdNode, target [9]float64, k int, h *neighborHeap) {
	if node == nil {
		return
	}

	h.consider(neighbor{candidate: node.candidate, distSq: distSq(node.vector, target)}, k)

	planeDist := target[node.axis] - node.vector[node.axis]

	near, far := node.left, node.right
	if planeDist >= 0 {
		near, far = node.right, node.left
	}

	t.search(near, target, k, h)

	// <= keeps equal-distance points on the far side reachable so id
	// tie-breaks match the brute force scan.
	if h.Len() < k || planeDist*planeDist <= h.worst().distSq {
		t.search(far, target, k, h)
	}
}

// BruteForceNearest is the reference implementation of NearestNeighbors: a
// full scan of the pool. Quadratic over repeated queries, kept for
// verification and small pools.
func BruteForceNearest(pool []models.Candidate, target models.Features, k int) []models.Candidate {
	if len(pool) == 0 || k <= 0 {
		return nil
	}

	tv := Normalize(target).Vector()
	neighbors := make([]neighbor, len(pool))
	for i, c := range pool {
		neighbors[i] = neighbor{candidate: c, distSq: distSq(Normalize(c.Features).Vector(), tv)}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].distSq != neighbors[j].distSq {
			return neighbors[i].distSq < neighbors[j].distSq
		}
		return neighbors[i].candidate.ID < neighbors[j].candidate.ID
	})

	if k > len(neighbors) {
		k = len(neighbors)
	}
	out := make([]models.Candidate, k)
	for i := range out {
		out[i] = neighbors[i].candidate
	}
	return out
}

func distSq(a, b [9]float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

type neighbor struct {
	candidate models.Candidate
	distSq    float64
}

// neighborHeap is a worst-first heap of the best matches seen so far.
type neighborHeap []neighbor

func (h neighborHeap) Len() int      { return len(h) }
func (h neighborHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h neighborHeap) Less(i, j int) bool {
	if h[i].distSq != h[j].distSq {
		return h[i].distSq > h[j].distSq
	}
	return h[i].candidate.ID > h[j].candidate.ID
}

func (h *neighborHeap) Push(x any) { *h = append(*h, x.(neighbor)) }

func (h *neighborHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h neighborHeap) worst() neighbor { return h[0] }

// consider admits the neighbor when the heap has room or it beats the worst
// member, evicting that member.
func (h *neighborHeap) consider(n neighbor, k int) {
	if h.Len() < k {
		heap.Push(h, n)
		return
	}
	if n.distSq < h.worst().distSq || (n.distSq == h.worst().distSq && n.candidate.ID < h.worst().candidate.ID) {
		heap.Pop(h)
		heap.Push(h, n)
	}
}

// sorted drains the heap into nearest-first order.
func (h *neighborHeap) sorted() []models.Candidate {
	out := make([]models.Candidate, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(neighbor).candidate
	}
	return out
}
