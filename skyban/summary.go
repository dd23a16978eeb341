package skyban

import (
	"github.com/montanaflynn/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary describes the size and price distribution of an index
type Summary struct {
	Items      int
	Levels     int
	Attributes int
	Combos     int

	// Distribution of the top-level prices
	MedianPrice float64
	P90Price    float64
}

func Summarize(index PriceIndex) Summary {
	var summary Summary
	var prices []float64

	for _, record := range index {
		if record == nil {
			continue
		}
		if record.HasPrice() {
			summary.Items++
			prices = append(prices, record.LowestPrice)
		}
		summary.Levels += len(record.Levels)
		summary.Attributes += len(record.Attributes)
		summary.Combos += len(record.AttributeCombos)
	}

	if len(prices) == 0 {
		return summary
	}

	var err error
	summary.MedianPrice, err = stats.Median(prices)
	if err != nil {
		summary.MedianPrice = 0
	}
	summary.P90Price, err = stats.Percentile(prices, 90)
	if err != nil {
		summary.P90Price = 0
	}

	return summary
}

func (s Summary) String() string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d items, %d levels, %d attributes, %d combos, median lbin %d, p90 lbin %d",
		s.Items, s.Levels, s.Attributes, s.Combos, int64(s.MedianPrice), int64(s.P90Price))
}
