package types

// ComputeLineColumn computes line and column numbers from a byte offset in content.
// Lines and columns are 1-indexed (first line is 1, first column is 1).
func ComputeLineColumn(content []byte, byteOffset int) (line, column int) {
	line = 1
	column = 1
	for i := 0; i < byteOffset && i < len(content); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// ComputeOffset is the inverse of ComputeLineColumn. Positions past the end
// of a line or of the content clamp to the nearest valid offset.
func ComputeOffset(content []byte, line, column int) int {
	if line < 1 {
		line = 1
	}
	if column < 1 {
		column = 1
	}
	off := 0
	for cur := 1; cur < line && off < len(content); off++ {
		if content[off] == '\n' {
			cur++
		}
	}
	for col := 1; col < column && off < len(content) && content[off] != '\n'; col++ {
		off++
	}
	return off
}

// LineBounds returns the [start, end) offsets of the line containing byteOffset,
// excluding the trailing newline.
func LineBounds(content []byte, byteOffset int) (start, end int) {
	if byteOffset > len(content) {
		byteOffset = len(content)
	}
	start = byteOffset
	for start > 0 && content[start-1] != '\n' {
		start--
	}
	end = byteOffset
	for end < len(content) && content[end] != '\n' {
		end++
	}
	return start, end
}
