package report

import "github.com/spherical/pdf-summarizer/internal/domain"

// MetricStats summarizes one metric column.
type MetricStats struct {
	Name  string
	Count int
	Mean  float64
	Max   float64
}

// Stats computes count, mean and max per metric, in CSV column order.
func Stats(records []domain.PerformanceRecord) []MetricStats {
	columns := []struct {
		name string
		get  func(domain.PerformanceRecord) float64
	}{
		{"extraction_time", func(r domain.PerformanceRecord) float64 { return r.ExtractionTime }},
		{"summary_time", func(r domain.PerformanceRecord) float64 { return r.SummaryTime }},
		{"keyword_extraction_time", func(r domain.PerformanceRecord) float64 { return r.KeywordExtractionTime }},
		{"mongodb_insertion_time", func(r domain.PerformanceRecord) float64 { return r.StoreInsertionTime }},
		{"memory_usage", func(r domain.PerformanceRecord) float64 { return float64(r.MemoryUsage) }},
	}

	out := make([]MetricStats, len(columns))
	for i, c := range columns {
		s := MetricStats{Name: c.name, Count: len(records)}
		var sum float64
		for j, r := range records {
			v := c.get(r)
			sum += v
			if j == 0 || v > s.Max {
				s.Max = v
			}
		}
		if len(records) > 0 {
			s.Mean = sum / float64(len(records))
		}
		out[i] = s
	}
	return out
}
