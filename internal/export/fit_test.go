package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFit(t *testing.T) {
	page := A4(10)
	tests := []struct {
		name string
		src  Size
		want Placement
	}{
		// 宽图：受宽度限制
		{"wide", Size{W: 1900, H: 950}, Placement{X: 10, Y: 101, W: 190, H: 95}},
		// 高图：受高度限制
		{"tall", Size{W: 1000, H: 4000}, Placement{X: 70.375, Y: 10, W: 69.25, H: 277}},
		// 恰好与可用区域同比例
		{"exact", Size{W: 190, H: 277}, Placement{X: 10, Y: 10, W: 190, H: 277}},
		// 默认 700x980 卡片
		{"card", Size{W: 1400, H: 1960}, Placement{X: 10, Y: 15.5, W: 190, H: 266}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.src, page)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.W, got.W, 1e-9)
			assert.InDelta(t, tt.want.H, got.H, 1e-9)
		})
	}
}

func TestFit_CenteredWithinMargins(t *testing.T) {
	page := A4(10)
	for _, src := range []Size{{1, 1}, {3, 1}, {1, 3}, {700, 980}, {12345, 17}} {
		p := Fit(src, page)
		assert.InDelta(t, page.Width, 2*p.X+p.W, 1e-9, "horizontal symmetry %v", src)
		assert.InDelta(t, page.Height, 2*p.Y+p.H, 1e-9, "vertical symmetry %v", src)
		assert.LessOrEqual(t, p.W, page.Width-2*page.Margin+1e-9)
		assert.LessOrEqual(t, p.H, page.Height-2*page.Margin+1e-9)
		assert.InDelta(t, src.W/src.H, p.W/p.H, 1e-9, "aspect ratio %v", src)
	}
}
