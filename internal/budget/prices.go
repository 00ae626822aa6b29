package budget

// ModelPrice is a per-model price table entry, expressed in USD per
// one million tokens, matching how every provider publishes pricing.
type ModelPrice struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPrices is a starting price table covering the providers wired
// into internal/llm. Callers running against a model absent here should
// supply their own table via WithPrices; an unknown model costs nothing
// (Status() still reports token counts) rather than failing the run.
var DefaultPrices = map[string]ModelPrice{
	"gpt-4o":            {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":       {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4.1":           {InputPerMillion: 2.00, OutputPerMillion: 8.00},
	"gpt-4.1-mini":      {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	"o3-mini":           {InputPerMillion: 1.10, OutputPerMillion: 4.40},
	"claude-3-5-sonnet": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-3-opus":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},
}

func costOf(prices map[string]ModelPrice, model string, inputTokens, outputTokens int64) float64 {
	price, ok := prices[model]
	if !ok {
		return 0
	}
	in := float64(inputTokens) / 1_000_000 * price.InputPerMillion
	out := float64(outputTokens) / 1_000_000 * price.OutputPerMillion
	return in + out
}
