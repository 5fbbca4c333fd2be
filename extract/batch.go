package extract

// ladderBatchCount scales the number of LLM batches with candidate volume,
// keeping each prompt small enough to classify reliably.
func ladderBatchCount(n int) int {
	switch {
	case n <= 10:
		return 1
	case n < 30:
		return 2
	case n < 50:
		return 3
	case n < 70:
		return 5
	case n < 80:
		return 6
	case n < 90:
		return 7
	case n < 100:
		return 8
	default:
		return 9
	}
}

// LadderBatches splits candidates into evenly sized batches, ceil division,
// capped at the ladder count.
func LadderBatches(candidates []string) [][]string {
	n := len(candidates)
	if n == 0 {
		return nil
	}
	numBatches := ladderBatchCount(n)
	batchSize := (n + numBatches - 1) / numBatches
	if batchSize < 1 {
		batchSize = 1
	}
	var batches [][]string
	for i := 0; i < n; i += batchSize {
		end := i + batchSize
		if end > n {
			end = n
		}
		batches = append(batches, candidates[i:end])
	}
	if len(batches) > numBatches {
		batches = batches[:numBatches]
	}
	return batches
}

// HalfBatches is the presentation-deck variant: one batch up to 10
// candidates, otherwise a half split with the larger half first.
func HalfBatches(candidates []string) [][]string {
	n := len(candidates)
	if n == 0 {
		return nil
	}
	if n <= 10 {
		return [][]string{candidates}
	}
	first := (n + 1) / 2
	return [][]string{candidates[:first], candidates[first:]}
}
