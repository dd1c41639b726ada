package fortune

import (
	"github.com/astrowise/astrowise-api/internal/domain/astro"
	"github.com/astrowise/astrowise-api/pkg/metrics"
)

// Request is the fortune question payload. Birth is optional; when every
// field is present the answer is enriched with a real natal chart.
type Request struct {
	UserID   string                 `json:"user_id"`
	Token    string                 `json:"token"`
	Question string                 `json:"question"`
	Birth    *astro.BirthDescriptor `json:"birth,omitempty"`
}

// Response mirrors the original fortuneProxy contract, answer being the
// legacy alias of prediction.
type Response struct {
	Success    bool               `json:"success"`
	Remaining  int                `json:"remaining"`
	Used       int                `json:"used"`
	Prediction string             `json:"prediction"`
	Answer     string             `json:"answer"`
	AstroData  *astro.ChartResult `json:"astroData,omitempty"`
	Warning    string             `json:"warning,omitempty"`
	Usage      metrics.TokenUsage `json:"usage,omitempty"`
}

// Config drives prompt construction and quota warnings.
type Config struct {
	Model              string
	Temperature        float32
	SystemPrompt       string
	ContextTokenBudget int
	WarnBelow          int
}
