package domain

// ImportBatch is the outcome of decoding a bulk reading file. Rows that fail
// to parse are counted and described, the rest are kept in file order.
type ImportBatch struct {
	Readings []Reading
	Total    int
	Failed   int
	Errors   []string
}

func (b *ImportBatch) Reject(msg string) {
	b.Failed++
	b.Errors = append(b.Errors, msg)
}
