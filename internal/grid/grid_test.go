package grid

import "testing"

func TestIndexRowMajor(t *testing.T) {
	g := New[int](3, 4, 5)
	tests := []struct {
		x, y, z int
		want    int
	}{
		{0, 0, 0, 0},
		{0, 0, 1, 1},
		{0, 1, 0, 5},
		{1, 0, 0, 20},
		{2, 3, 4, 59},
	}
	for _, tt := range tests {
		if got := g.Index(tt.x, tt.y, tt.z); got != tt.want {
			t.Errorf("Index(%d,%d,%d) = %d, want %d", tt.x, tt.y, tt.z, got, tt.want)
		}
	}
	if g.Len() != 60 {
		t.Fatalf("Len = %d, want 60", g.Len())
	}
}

func TestGetSetBounds(t *testing.T) {
	g := New[float32](2, 2, 2)
	if !g.Set(1, 1, 1, 0.75) {
		t.Fatalf("Set in range failed")
	}
	if v, ok := g.Get(1, 1, 1); !ok || v != 0.75 {
		t.Fatalf("Get = %v,%v", v, ok)
	}
	for _, p := range [][3]int{{-1, 0, 0}, {2, 0, 0}, {0, 2, 0}, {0, 0, -1}} {
		if _, ok := g.Get(p[0], p[1], p[2]); ok {
			t.Errorf("Get(%v) should be out of range", p)
		}
		if g.Set(p[0], p[1], p[2], 1) {
			t.Errorf("Set(%v) should fail", p)
		}
		if g.Ptr(p[0], p[1], p[2]) != nil {
			t.Errorf("Ptr(%v) should be nil", p)
		}
	}
}

func TestFillAndCopy(t *testing.T) {
	a := New[int](2, 3, 2)
	a.Fill(7)
	b := New[int](2, 3, 2)
	if !b.CopyFrom(a) {
		t.Fatalf("CopyFrom same size failed")
	}
	for i, v := range b.Cells() {
		if v != 7 {
			t.Fatalf("cell %d = %d, want 7", i, v)
		}
	}
	if New[int](1, 1, 1).CopyFrom(a) {
		t.Fatalf("CopyFrom mismatched size should fail")
	}
}
