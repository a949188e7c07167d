package model

// Chunk is a stored unit of knowledge: a word-bounded slice of a source
// document plus its embedding vector. Chunks are append-only; there is no
// update path.
type Chunk struct {
	Source    string
	Text      string
	Embedding []float32
	Ctime     int64
}

// Match is a transient retrieval result. Score semantics depend on the
// retrieval path: vector matches carry a cosine similarity, keyword matches
// carry a fixed fallback-confidence constant.
type Match struct {
	Source string
	Text   string
	Score  float64
}

type Reference struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

type Answer struct {
	Text       string
	References []Reference
}
