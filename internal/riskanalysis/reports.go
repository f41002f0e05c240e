package riskanalysis

// Threat levels in an ambient analysis report.
const (
	ThreatLow    = "Low"
	ThreatMedium = "Medium"
	ThreatHigh   = "High"
)

// AdviceReport answers a free-text operator query.
type AdviceReport struct {
	Content     string   `json:"content"`
	Suggestions []string `json:"suggestions"`
	Fallback    bool     `json:"fallback,omitempty"`
}

// AmbientReport classifies an intercepted ambient audio transcript.
type AmbientReport struct {
	Context     string   `json:"context"`
	ThreatLevel string   `json:"threatLevel"`
	Keywords    []string `json:"keywords,omitempty"`
	Summary     string   `json:"summary"`
	Fallback    bool     `json:"fallback,omitempty"`
}

// ScreenshotReport classifies a captured screenshot.
type ScreenshotReport struct {
	Content          string   `json:"content"`
	RiskLevel        string   `json:"riskLevel"`
	DetectedPlatform string   `json:"detectedPlatform,omitempty"`
	Suggestions      []string `json:"suggestions"`
	Fallback         bool     `json:"fallback,omitempty"`
}

// CallIntentReport classifies a phone call by number and transcript excerpt.
type CallIntentReport struct {
	Classification string  `json:"classification"`
	RiskScore      float64 `json:"riskScore"`
	Action         string  `json:"action"`
	Reasoning      string  `json:"reasoning"`
	Fallback       bool    `json:"fallback,omitempty"`
}

// FileRiskReport classifies a file by its metadata.
type FileRiskReport struct {
	RiskLevel      string `json:"riskLevel"`
	Reason         string `json:"reason"`
	Recommendation string `json:"recommendation"`
	Fallback       bool   `json:"fallback,omitempty"`
}

// SocialReport audits recent activity on a social platform.
type SocialReport struct {
	Sentiment    string   `json:"sentiment"`
	KeyRisks     []string `json:"keyRisks"`
	SafetyScore  float64  `json:"safetyScore"`
	UrgentAction string   `json:"urgentAction"`
	Fallback     bool     `json:"fallback,omitempty"`
}
