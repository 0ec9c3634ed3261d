package sampling

// Wire types for the generateContent REST endpoint.

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema  `json:"responseSchema,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// text joins the parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var out string
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

func userText(text string) content {
	return content{Role: "user", Parts: []part{{Text: text}}}
}

var mealSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"name":     {Type: "STRING", Description: "A short, concise name for the meal."},
		"calories": {Type: "NUMBER", Description: "Estimated total calories."},
		"protein":  {Type: "NUMBER", Description: "Estimated protein in grams."},
		"carbs":    {Type: "NUMBER", Description: "Estimated carbohydrates in grams."},
		"fats":     {Type: "NUMBER", Description: "Estimated fats in grams."},
	},
	Required: []string{"name", "calories", "protein", "carbs", "fats"},
}

var journalMetadataSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"title": {Type: "STRING", Description: "A concise title (under 10 words) for the note."},
		"tags": {
			Type:        "ARRAY",
			Items:       &schema{Type: "STRING"},
			Description: "A list of maximum 5 relevant keyword tags.",
		},
	},
	Required: []string{"title", "tags"},
}
