package recovery

// RootCause is the identified cause of one tool failure.
type RootCause struct {
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
}

// Remedy is an alternative suggested by the diagnosis.
type Remedy struct {
	Strategy    string   `json:"strategy"`
	Description string   `json:"description"`
	Tools       []string `json:"tools,omitempty"`
}

// Diagnosis is the output of a "5 Whys" analysis of a failed tool call.
type Diagnosis struct {
	RootCause    RootCause `json:"rootCause"`
	WhyChain     []string  `json:"whyChain"`
	Alternatives []Remedy  `json:"alternatives,omitempty"`
}
