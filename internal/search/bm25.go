package search

import (
	"math"
)

const (
	k1 = 1.2
	b  = 0.75
)

// idf is the BM25 inverse document frequency with the +1 floor that keeps
// scores positive for terms present in most documents.
func idf(totalDocs, docFreq int64) float64 {
	if totalDocs < docFreq {
		totalDocs = docFreq
	}
	return math.Log((float64(totalDocs)-float64(docFreq)+0.5)/(float64(docFreq)+0.5) + 1)
}

// tfNorm saturates a term frequency against the field length.
func tfNorm(termFreq, fieldLen, avgFieldLen float64) float64 {
	if avgFieldLen <= 0 {
		avgFieldLen = 1
	}
	return (termFreq * (k1 + 1)) / (termFreq + k1*(1-b+b*fieldLen/avgFieldLen))
}

func roundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}
