package models

// ClusterFinding describes one population cluster from the exposure study.
type ClusterFinding struct {
	ID             int     `json:"id"`
	Percentage     string  `json:"percentage"`
	PM25           string  `json:"pm25"`
	Inflammation   string  `json:"inflammation"`
	AgeProfile     string  `json:"ageProfile"`
	CVDRate        string  `json:"cvdRate"`
	LinkScore      string  `json:"linkScore"`
	Interpretation string  `json:"interpretation"`
	Description    string  `json:"description"`
}

// Predictor is one model feature ranked by predictive importance.
type Predictor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Emphasis    bool   `json:"emphasis"`
}

// Findings is the research-findings content served by the findings endpoint.
type Findings struct {
	Title         string           `json:"title"`
	Subtitle      string           `json:"subtitle"`
	Clusters      []ClusterFinding `json:"clusters"`
	TopPredictors []Predictor      `json:"topPredictors"`
}
