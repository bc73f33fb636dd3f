package atlas

import "sort"

// UploadSpan describes one contiguous region of the staging buffer that
// must reach the GPU texture. Offset and Length are in bytes into the
// staging buffer; the span's rows are atlas-width apart, so Length covers
// Rect.Height-1 full rows plus the final row's Rect.Width bytes.
type UploadSpan struct {
	Rect   Rect
	Offset int
	Length int
}

// dirtyTracker accumulates rectangles written to the staging buffer since
// the last drain.
type dirtyTracker struct {
	rects []Rect
}

// mark records a written rectangle.
func (d *dirtyTracker) mark(r Rect) {
	d.rects = append(d.rects, r)
}

// drain merges and converts the accumulated rectangles into upload spans,
// then clears the set. Rects on the same shelf row (same top edge) that
// touch or overlap horizontally within maxGap pixels are merged into one
// span to cut upload calls.
func (d *dirtyTracker) drain(atlasWidth, maxGap int) []UploadSpan {
	if len(d.rects) == 0 {
		return nil
	}

	sort.Slice(d.rects, func(i, j int) bool {
		if d.rects[i].Y != d.rects[j].Y {
			return d.rects[i].Y < d.rects[j].Y
		}
		return d.rects[i].X < d.rects[j].X
	})

	merged := d.rects[:1]
	for _, r := range d.rects[1:] {
		last := &merged[len(merged)-1]
		if r.Y == last.Y && r.X <= last.X+last.Width+maxGap {
			if right := r.X + r.Width - last.X; right > last.Width {
				last.Width = right
			}
			if r.Height > last.Height {
				last.Height = r.Height
			}
			continue
		}
		merged = append(merged, r)
	}

	spans := make([]UploadSpan, len(merged))
	for i, r := range merged {
		spans[i] = UploadSpan{
			Rect:   r,
			Offset: r.Y*atlasWidth + r.X,
			Length: (r.Height-1)*atlasWidth + r.Width,
		}
	}

	d.rects = nil
	return spans
}

// empty reports whether nothing is dirty.
func (d *dirtyTracker) empty() bool {
	return len(d.rects) == 0
}
