package mongodb

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ticket_server/core/port/out"
)

const (
	// similarityThreshold is the minimum cosine score for a past ticket to
	// count as a match.
	similarityThreshold = 0.7

	// topMatches caps how many matches a search returns.
	topMatches = 3

	// scanLimit bounds how many recent responses one search considers.
	scanLimit = 1000
)

// SimilaritySearcher finds past tickets whose bodies resemble a new one,
// using word-frequency cosine similarity over the stored responses.
type SimilaritySearcher struct {
	collection *mongo.Collection
}

func NewSimilaritySearcher(db *mongo.Database) *SimilaritySearcher {
	return &SimilaritySearcher{collection: db.Collection(collectionResponses)}
}

func (s *SimilaritySearcher) Search(ctx context.Context, ticketBody string) (*out.SimilarityResult, error) {
	start := time.Now()

	findOpts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(scanLimit).
		SetProjection(bson.M{"ticketId": 1, "ticketSubject": 1, "ticketBody": 1, "response": 1})

	cursor, err := s.collection.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return &out.SimilarityResult{Status: "error"}, err
	}
	defer cursor.Close(ctx)

	var matches []out.SimilarityMatch
	for cursor.Next(ctx) {
		var rec out.ResponseRecord
		if err := cursor.Decode(&rec); err != nil {
			continue
		}
		score := CosineSimilarity(ticketBody, rec.TicketBody)
		if score >= similarityThreshold {
			matches = append(matches, out.SimilarityMatch{
				TicketID:      rec.TicketID,
				TicketSubject: rec.TicketSubject,
				Response:      rec.Response,
				Similarity:    math.Round(score*1000) / 1000,
			})
		}
	}
	if err := cursor.Err(); err != nil {
		return &out.SimilarityResult{Status: "error"}, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	total := len(matches)
	if len(matches) > topMatches {
		matches = matches[:topMatches]
	}

	return &out.SimilarityResult{
		Status:     "success",
		Results:    matches,
		TotalFound: total,
		Elapsed:    time.Since(start),
	}, nil
}

// CosineSimilarity scores two texts by their word-frequency vectors.
// Texts whose lengths differ by more than a factor of five score zero
// without further work.
func CosineSimilarity(text1, text2 string) float64 {
	if text1 == "" || text2 == "" {
		return 0.0
	}

	words1 := strings.Fields(strings.ToLower(text1))
	words2 := strings.Fields(strings.ToLower(text2))
	if len(words2) == 0 {
		return 0.0
	}

	ratio := float64(len(words1)) / float64(len(words2))
	if ratio > 5 || ratio < 0.2 {
		return 0.0
	}

	counts1 := wordCounts(words1)
	counts2 := wordCounts(words2)

	dot := 0.0
	for word, c1 := range counts1 {
		if c2, ok := counts2[word]; ok {
			dot += float64(c1 * c2)
		}
	}
	if dot == 0 {
		return 0.0
	}

	norm1 := vectorNorm(counts1)
	norm2 := vectorNorm(counts2)
	if norm1 == 0 || norm2 == 0 {
		return 0.0
	}
	return dot / (norm1 * norm2)
}

func wordCounts(words []string) map[string]int {
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}
	return counts
}

func vectorNorm(counts map[string]int) float64 {
	sum := 0.0
	for _, c := range counts {
		sum += float64(c * c)
	}
	return math.Sqrt(sum)
}
