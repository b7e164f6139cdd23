package index

// Passage is the unit of retrieval. Ids are contiguous from 0 in creation
// order and a passage is never modified after segmentation.
type Passage struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Title    string `json:"title"`
	SourceID string `json:"source_id"`
}

// PostingList holds the ids of the passages containing a term, ascending and
// without duplicates.
type PostingList []int

// WeightTable maps passage id to term to TF-IDF weight.
type WeightTable map[int]map[string]float64

// Weight returns the weight of term in passage id, or 0.
func (w WeightTable) Weight(id int, term string) float64 {
	return w[id][term]
}
