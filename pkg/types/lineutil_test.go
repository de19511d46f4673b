package types

import "testing"

func TestComputeLineColumn(t *testing.T) {
	tests := []struct {
		name       string
		content    []byte
		byteOffset int
		wantLine   int
		wantColumn int
	}{
		{
			name:       "empty content at offset 0",
			content:    []byte{},
			byteOffset: 0,
			wantLine:   1,
			wantColumn: 1,
		},
		{
			name:       "single line at offset 2",
			content:    []byte("hello"),
			byteOffset: 2,
			wantLine:   1,
			wantColumn: 3,
		},
		{
			name:       "multi-line at offset 7",
			content:    []byte("hello\nworld"),
			byteOffset: 7,
			wantLine:   2,
			wantColumn: 2,
		},
		{
			name:       "offset at newline",
			content:    []byte("hello\nworld"),
			byteOffset: 5,
			wantLine:   1,
			wantColumn: 6,
		},
		{
			name:       "offset beyond content length",
			content:    []byte("hello"),
			byteOffset: 100,
			wantLine:   1,
			wantColumn: 6,
		},
		{
			name:       "offset at start of second line",
			content:    []byte("hello\nworld"),
			byteOffset: 6,
			wantLine:   2,
			wantColumn: 1,
		},
		{
			name:       "multiple newlines",
			content:    []byte("line1\nline2\nline3"),
			byteOffset: 12,
			wantLine:   3,
			wantColumn: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLine, gotColumn := ComputeLineColumn(tt.content, tt.byteOffset)
			if gotLine != tt.wantLine {
				t.Errorf("ComputeLineColumn() line = %v, want %v", gotLine, tt.wantLine)
			}
			if gotColumn != tt.wantColumn {
				t.Errorf("ComputeLineColumn() column = %v, want %v", gotColumn, tt.wantColumn)
			}
		})
	}
}

func TestComputeOffset_RoundTrip(t *testing.T) {
	content := []byte("name: a\nitems:\n  - x\n")
	for off := 0; off <= len(content); off++ {
		line, col := ComputeLineColumn(content, off)
		if got := ComputeOffset(content, line, col); got != off {
			t.Errorf("ComputeOffset(%d:%d) = %d, want %d", line, col, got, off)
		}
	}
}

func TestComputeOffset_Clamps(t *testing.T) {
	content := []byte("ab\ncd")
	if got := ComputeOffset(content, 1, 99); got != 2 {
		t.Errorf("column past end of line: got %d, want 2", got)
	}
	if got := ComputeOffset(content, 9, 1); got != len(content) {
		t.Errorf("line past end of content: got %d, want %d", got, len(content))
	}
	if got := ComputeOffset(content, 0, 0); got != 0 {
		t.Errorf("zero position: got %d, want 0", got)
	}
}

func TestLineBounds(t *testing.T) {
	content := []byte("first\nsecond\nthird")
	start, end := LineBounds(content, 8)
	if string(content[start:end]) != "second" {
		t.Errorf("LineBounds() = %q, want %q", content[start:end], "second")
	}
	start, end = LineBounds(content, 100)
	if string(content[start:end]) != "third" {
		t.Errorf("LineBounds() past end = %q, want %q", content[start:end], "third")
	}
}
