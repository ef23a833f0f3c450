package face

import (
	"errors"
	"image"
	"testing"
)

func pattern(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[img.PixOffset(x, y)] = uint8((x*7 + y*3) % 256)
		}
	}
	return img
}

type fakeLocator struct {
	faces []image.Rectangle
	seen  []image.Rectangle
}

func (f *fakeLocator) Locate(img *image.Gray) []image.Rectangle {
	f.seen = append(f.seen, img.Bounds())
	return f.faces
}

func TestRotate(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.Pix[src.PixOffset(x, y)] = uint8(x + 10*y)
		}
	}
	dst := Rotate(src)
	if got, want := dst.Bounds(), image.Rect(0, 0, 2, 3); got != want {
		t.Fatalf("rotated bounds %v, want %v", got, want)
	}
	want := [][]uint8{
		{2, 12},
		{1, 11},
		{0, 10},
	}
	for y, row := range want {
		for x, v := range row {
			if got := dst.GrayAt(x, y).Y; got != v {
				t.Errorf("rotated (%d,%d) = %d, want %d", x, y, got, v)
			}
		}
	}
}

func TestEqualize(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(src.Pix, []uint8{10, 10, 20, 30})
	got := Equalize(src).Pix
	want := []uint8{0, 0, 128, 255}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("equalized %v, want %v", got, want)
			break
		}
	}

	flat := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(flat.Pix, []uint8{9, 9, 9, 9})
	for _, v := range Equalize(flat).Pix {
		if v != 9 {
			t.Errorf("flat image changed to %v", Equalize(flat).Pix)
			break
		}
	}
}

func TestPadAndFallback(t *testing.T) {
	bounds := image.Rect(0, 0, 224, 224)
	tests := []struct {
		face, want image.Rectangle
	}{
		{image.Rect(50, 50, 150, 150), image.Rect(50, 30, 150, 170)},
		{image.Rect(0, 0, 100, 100), image.Rect(0, 0, 100, 120)},
		{image.Rect(200, 200, 260, 260), image.Rect(200, 188, 224, 224)},
	}
	for _, test := range tests {
		if got := Pad(test.face, bounds); got != test.want {
			t.Errorf("Pad(%v) = %v, want %v", test.face, got, test.want)
		}
	}
	if got, want := Fallback(bounds), image.Rect(34, 0, 190, 224); got != want {
		t.Errorf("Fallback(%v) = %v, want %v", bounds, got, want)
	}
	wide := image.Rect(0, 0, 448, 100)
	if got, want := Fallback(wide), image.Rect(68, 0, 380, 100); got != want {
		t.Errorf("Fallback(%v) = %v, want %v", wide, got, want)
	}
}

func TestResize(t *testing.T) {
	got := Resize(pattern(100, 140), Rows).Bounds()
	if want := image.Rect(0, 0, 28, 40); got != want {
		t.Errorf("resized to %v, want %v", got, want)
	}
}

func TestPrepareFace(t *testing.T) {
	loc := &fakeLocator{faces: []image.Rectangle{
		image.Rect(50, 50, 150, 150),
		image.Rect(0, 0, 10, 10),
	}}
	p := &Pipeline{Locator: loc, DisableAutoLevels: true}
	img, err := p.Prepare(pattern(224, 224))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := img.Bounds(), image.Rect(0, 0, 28, 40); got != want {
		t.Errorf("prepared %v, want %v", got, want)
	}
	if len(loc.seen) != 1 || loc.seen[0] != image.Rect(0, 0, 224, 224) {
		t.Errorf("locator saw %v", loc.seen)
	}
}

func TestPrepareMisses(t *testing.T) {
	loc := new(fakeLocator)
	p := &Pipeline{Locator: loc}
	photo := pattern(224, 224)
	for i := 1; i < MaxMisses; i++ {
		if _, err := p.Prepare(photo); !errors.Is(err, ErrNoFace) {
			t.Fatalf("miss %d: got %v, want ErrNoFace", i, err)
		}
		if p.Misses() != i {
			t.Errorf("miss %d: counted %d", i, p.Misses())
		}
	}
	img, err := p.Prepare(photo)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if got, want := img.Bounds(), image.Rect(0, 0, 27, 40); got != want {
		t.Errorf("fallback crop %v, want %v", got, want)
	}
	if p.Misses() != 0 {
		t.Errorf("misses not reset after fallback: %d", p.Misses())
	}

	if _, err := p.Prepare(photo); !errors.Is(err, ErrNoFace) {
		t.Fatalf("got %v, want ErrNoFace", err)
	}
	loc.faces = []image.Rectangle{image.Rect(50, 50, 150, 150)}
	if _, err := p.Prepare(photo); err != nil {
		t.Fatal(err)
	}
	if p.Misses() != 0 {
		t.Errorf("misses not reset after a face: %d", p.Misses())
	}
}
