package export

// 纸张尺寸，单位 mm
const (
	A4WidthMM  = 210.0
	A4HeightMM = 297.0
)

// Size 宽高，单位由调用方决定
type Size struct {
	W, H float64
}

// Page 页面尺寸与四边统一边距，单位 mm
type Page struct {
	Width, Height, Margin float64
}

// A4 纵向 A4 页面
func A4(margin float64) Page {
	return Page{Width: A4WidthMM, Height: A4HeightMM, Margin: margin}
}

// Placement 图片在页面上的位置和大小，单位 mm
type Placement struct {
	X, Y, W, H float64
}

// Fit 保持宽高比，把图片缩放到页边距内的最大尺寸并居中
func Fit(src Size, page Page) Placement {
	pageW := page.Width - 2*page.Margin
	pageH := page.Height - 2*page.Margin
	r := src.W / src.H

	w := pageW
	h := w / r
	if h > pageH {
		h = pageH
		w = h * r
	}
	return Placement{
		X: (page.Width - w) / 2,
		Y: (page.Height - h) / 2,
		W: w,
		H: h,
	}
}
