// Package keyboard builds transport-agnostic inline keyboards.
package keyboard

// Button is one inline keyboard button: a label plus the opaque payload
// delivered back as callback data when pressed.
type Button struct {
	Text string
	Data string
}

// Inline is a rendered inline keyboard: rows of buttons.
type Inline struct {
	Rows [][]Button
}

// Builder accumulates rows of buttons before rendering an Inline keyboard.
type Builder struct {
	rows [][]Button
}

// NewBuilder creates an empty keyboard builder.
func NewBuilder() *Builder {
	return &Builder{rows: make([][]Button, 0)}
}

// Row appends a new row made of the given buttons. Empty rows are skipped.
func (b *Builder) Row(buttons ...Button) *Builder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]Button, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// Rows appends several prebuilt rows, e.g. the output of Chunk.
func (b *Builder) Rows(rows [][]Button) *Builder {
	for _, row := range rows {
		b.Row(row...)
	}
	return b
}

// Build finalizes the keyboard.
func (b *Builder) Build() *Inline {
	return &Inline{Rows: b.rows}
}

// Chunk splits buttons into rows of at most size buttons each.
func Chunk(buttons []Button, size int) [][]Button {
	if size < 1 {
		size = 1
	}

	rows := make([][]Button, 0, (len(buttons)+size-1)/size)
	for i := 0; i < len(buttons); i += size {
		end := i + size
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}

	return rows
}
