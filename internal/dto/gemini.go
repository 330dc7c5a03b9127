package dto

// GeminiAPIRequest is the request body for the Gemini generateContent endpoint.
type GeminiAPIRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a single content block in a Gemini request or response.
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is a single text part of a content block.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig tunes Gemini output generation.
type GenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

// GeminiAPIResponse is the response body from the Gemini generateContent endpoint.
type GeminiAPIResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ScoreResult is the JSON structure the scoring prompts ask the model to emit.
type ScoreResult struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}
