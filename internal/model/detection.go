package model

// Detection is a single bounding-box prediction produced by the detector.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
}

// Width returns the box width in pixels.
func (d Detection) Width() int {
	return d.X2 - d.X1
}

// Height returns the box height in pixels.
func (d Detection) Height() int {
	return d.Y2 - d.Y1
}

// AnalysisResult is the outcome of scoring a set of detections.
// Labels are unique and kept in order of first appearance.
type AnalysisResult struct {
	Labels []string `json:"result"`
	Score  int      `json:"score"`
}
