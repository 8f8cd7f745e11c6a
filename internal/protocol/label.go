package protocol

// LabelSize describes one supported label stock. The raster is in printer
// orientation: PixelW across the 96-dot head, PixelH along the feed.
type LabelSize struct {
	Name   string
	Width  float64 // mm
	Height float64 // mm
	PixelW int
	PixelH int
}

// Label stocks the P21 takes.
var (
	Label12x40 = LabelSize{"12x40mm", 12.0, 40.0, 96, 284}
	Label14x40 = LabelSize{"14x40mm", 14.0, 40.0, 96, 284}
	Label14x50 = LabelSize{"14x50mm", 14.0, 50.0, 96, 355}
	Label14x75 = LabelSize{"14x75mm", 14.0, 75.0, 96, 532}
	Label15x30 = LabelSize{"15x30mm", 15.0, 30.0, 96, 213}
)

var AllSizes = []LabelSize{Label12x40, Label14x40, Label14x50, Label14x75, Label15x30}

// SizeByName looks up a label stock by its display name.
func SizeByName(name string) (LabelSize, bool) {
	for _, s := range AllSizes {
		if s.Name == name {
			return s, true
		}
	}
	return LabelSize{}, false
}
