package domain

// TextFragment is one positioned text item as produced by the page renderer.
// Coordinates are PDF-style (origin bottom-left); the indexer flips them.
type TextFragment struct {
	Text     string
	X        float64
	Y        float64
	Width    float64
	Height   float64
	FontName string
	FontSize float64
}

// BBox is a page rectangle in top-down coordinates (origin top-left).
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextChunk is one sentence (or terminal fragment) of page text with a stable
// document-wide index and a character range into the concatenated text stream.
type TextChunk struct {
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	PageNum    int     `json:"page_num"`
	BBox       BBox    `json:"bbox"`
	FontName   string  `json:"font_name,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"`
	IsHeading  bool    `json:"is_heading"`
	IsBold     bool    `json:"is_bold"`
	Confidence float64 `json:"confidence"`
	CharStart  int     `json:"char_start"`
	CharEnd    int     `json:"char_end"`
}
