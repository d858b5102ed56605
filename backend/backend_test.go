package backend

import "testing"

type recordingBackend struct {
	cells map[[2]int]rune
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{cells: make(map[[2]int]rune)}
}

func (b *recordingBackend) Init() error      { return nil }
func (b *recordingBackend) Fini()            {}
func (b *recordingBackend) Size() (int, int) { return 10, 2 }
func (b *recordingBackend) Clear()           {}
func (b *recordingBackend) Show()            {}
func (b *recordingBackend) HideCursor()      {}
func (b *recordingBackend) PollEvent() Event { return nil }
func (b *recordingBackend) SetContent(x, y int, r rune, _ []rune, _ Style) {
	b.cells[[2]int{x, y}] = r
}

func (b *recordingBackend) row(y, width int) string {
	out := make([]rune, 0, width)
	for x := range width {
		if r, ok := b.cells[[2]int{x, y}]; ok {
			out = append(out, r)
		}
	}
	return string(out)
}

func TestTextCells_Pads(t *testing.T) {
	cells := TextCells("ab", 4, DefaultStyle())
	if len(cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(cells))
	}
	if cells[0].Rune != 'a' || cells[3].Rune != ' ' {
		t.Fatalf("expected 'a' then padding, got %q and %q", cells[0].Rune, cells[3].Rune)
	}
}

func TestTextCells_Truncates(t *testing.T) {
	cells := TextCells("hello world", 8, DefaultStyle())
	if len(cells) != 8 {
		t.Fatalf("expected 8 cells, got %d", len(cells))
	}
	runes := make([]rune, 0, len(cells))
	for _, c := range cells {
		runes = append(runes, c.Rune)
	}
	if got := string(runes); got != "hello..." {
		t.Fatalf("expected hello..., got %q", got)
	}
}

func TestTextCells_WideRunes(t *testing.T) {
	cells := TextCells("日本", 4, DefaultStyle())
	if len(cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(cells))
	}
	if cells[0].Rune != '日' || cells[1].Rune != 0 || cells[2].Rune != '本' {
		t.Fatalf("expected wide runes with continuation cells, got %q %q %q", cells[0].Rune, cells[1].Rune, cells[2].Rune)
	}
}

func TestTextCells_ZeroWidth(t *testing.T) {
	if cells := TextCells("x", 0, DefaultStyle()); cells != nil {
		t.Fatalf("expected nil, got %v", cells)
	}
}

func TestDrawText_FallsBackToSetContent(t *testing.T) {
	b := newRecordingBackend()
	DrawText(b, 1, 0, 3, "abc", DefaultStyle())
	if got := b.row(0, 10); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

func TestDrawFrame(t *testing.T) {
	b := newRecordingBackend()
	cells := Frame([]string{"count: 1"}, 10, 2, DefaultStyle())
	if len(cells) != 20 {
		t.Fatalf("expected 20 cells, got %d", len(cells))
	}
	DrawFrame(b, 10, 2, cells)
	if got := b.row(0, 10); got != "count: 1  " {
		t.Fatalf("expected padded first row, got %q", got)
	}
	if got := b.row(1, 10); got != "          " {
		t.Fatalf("expected blank second row, got %q", got)
	}
}
