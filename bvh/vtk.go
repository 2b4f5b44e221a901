package bvh

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// WriteVtkFile dumps the built tree to a legacy-ASCII VTK unstructured grid
// for visualization: one cell per node bounding box (2D quads, 3D
// hexahedra) with the tree depth attached as cell data. Debugging aid, not
// a performance path.
func (b *BVH) WriteVtkFile(fileName string) error {
	t := b.tree
	if t == nil {
		return ErrNotBuilt
	}

	w := &vtkWriter{dim: t.dim, inner: t.inner}

	// Root box first at level 0, then every child box of every reachable
	// inner node.
	w.writeBox(t.bounds, 0)
	w.writeNode(0, 1)

	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	out := bufio.NewWriter(f)
	fmt.Fprintf(out, "# vtk DataFile Version 3.0\n")
	fmt.Fprintf(out, "BVH\n")
	fmt.Fprintf(out, "ASCII\n")
	fmt.Fprintf(out, "DATASET UNSTRUCTURED_GRID\n")

	fmt.Fprintf(out, "POINTS %d double\n", w.numPoints)
	out.Write(w.points.Bytes())

	pointsPerCell := 8
	cellType := 12 // hexahedron
	if t.dim == 2 {
		pointsPerCell = 4
		cellType = 9 // quad
	}

	fmt.Fprintf(out, "CELLS %d %d\n", w.numCells, w.numCells*(pointsPerCell+1))
	out.Write(w.cells.Bytes())

	fmt.Fprintf(out, "CELL_TYPES %d\n", w.numCells)
	for i := 0; i < w.numCells; i++ {
		fmt.Fprintf(out, "%d\n", cellType)
	}

	fmt.Fprintf(out, "CELL_DATA %d\n", w.numCells)
	fmt.Fprintf(out, "SCALARS level int\n")
	fmt.Fprintf(out, "LOOKUP_TABLE default\n")
	out.Write(w.levels.Bytes())

	return out.Flush()
}

type vtkWriter struct {
	dim   int
	inner []innerNode

	points bytes.Buffer
	cells  bytes.Buffer
	levels bytes.Buffer

	numPoints int
	numCells  int
}

// writeNode emits the two child boxes of an inner node and descends into
// the non-leaf children.
func (w *vtkWriter) writeNode(node int32, level int) {
	n := &w.inner[node]

	w.writeBox(n.leftBox(), level)
	w.writeBox(n.rightBox(), level)

	if !isLeafRef(n.left) {
		w.writeNode(n.left, level+1)
	}
	if !isLeafRef(n.right) {
		w.writeNode(n.right, level+1)
	}
}

func (w *vtkWriter) writeBox(box AABB, level int) {
	first := w.numPoints

	if w.dim == 2 {
		fmt.Fprintf(&w.points, "%f %f 0.0\n", box.Min[0], box.Min[1])
		fmt.Fprintf(&w.points, "%f %f 0.0\n", box.Max[0], box.Min[1])
		fmt.Fprintf(&w.points, "%f %f 0.0\n", box.Max[0], box.Max[1])
		fmt.Fprintf(&w.points, "%f %f 0.0\n", box.Min[0], box.Max[1])
		w.numPoints += 4

		fmt.Fprintf(&w.cells, "4 %d %d %d %d\n", first, first+1, first+2, first+3)
	} else {
		for _, z := range []float32{box.Min[2], box.Max[2]} {
			fmt.Fprintf(&w.points, "%f %f %f\n", box.Min[0], box.Min[1], z)
			fmt.Fprintf(&w.points, "%f %f %f\n", box.Max[0], box.Min[1], z)
			fmt.Fprintf(&w.points, "%f %f %f\n", box.Max[0], box.Max[1], z)
			fmt.Fprintf(&w.points, "%f %f %f\n", box.Min[0], box.Max[1], z)
		}
		w.numPoints += 8

		fmt.Fprintf(&w.cells, "8 %d %d %d %d %d %d %d %d\n",
			first, first+1, first+2, first+3,
			first+4, first+5, first+6, first+7)
	}

	fmt.Fprintf(&w.levels, "%d\n", level)
	w.numCells++
}
