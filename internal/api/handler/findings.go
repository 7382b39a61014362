package handler

import (
	"net/http"

	"github.com/airsight/airsight/internal/api/models"
	"github.com/airsight/airsight/internal/api/response"
)

// FindingsHandler serves the static research-findings content backing the
// dashboard's key-findings view.
type FindingsHandler struct {
	findings models.Findings
}

// NewFindingsHandler creates a new FindingsHandler.
func NewFindingsHandler() *FindingsHandler {
	return &FindingsHandler{findings: studyFindings()}
}

// Get handles GET /v1/findings.
func (h *FindingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	response.JSON(w, r, http.StatusOK, h.findings)
}

// studyFindings returns the published results of the PM2.5 exposure study:
// three population clusters and the top predictors of cardiovascular disease
// risk.
func studyFindings() models.Findings {
	return models.Findings{
		Title:    "Key Findings: Identifying Vulnerability and Disease Risk",
		Subtitle: "Understanding the relationship between air pollution exposure, population characteristics, and cardiovascular disease risk",
		Clusters: []models.ClusterFinding{
			{
				ID:             0,
				Percentage:     "18.1%",
				PM25:           "Highest average PM2.5 exposure",
				Inflammation:   "High inflammation (CRP)",
				AgeProfile:     "Older average age",
				CVDRate:        "20.74%",
				LinkScore:      "-0.7232",
				Interpretation: "Most vulnerable",
				Description:    "Most vulnerable. CVD risk highest at the lowest PM2.5 levels and increases significantly as exposure rises.",
			},
			{
				ID:             1,
				Percentage:     "41.3%",
				PM25:           "Low PM2.5 and inflammation",
				Inflammation:   "Low inflammation",
				AgeProfile:     "Very high average age (66 years)",
				CVDRate:        "20.58%",
				LinkScore:      "0.5388",
				Interpretation: "Strong positive link",
				Description:    "Strong positive link. Risk increases notably with higher PM2.5 levels.",
			},
			{
				ID:             2,
				Percentage:     "48.4%",
				PM25:           "Low PM2.5 and inflammation",
				Inflammation:   "Low inflammation",
				AgeProfile:     "Youngest group (45.7 years)",
				CVDRate:        "19.76%",
				LinkScore:      "0.1804",
				Interpretation: "Least affected",
				Description:    "Least affected. CVD risk is not as strongly influenced by PM2.5 exposure.",
			},
		},
		TopPredictors: []models.Predictor{
			{Name: "HbA1c", Description: "Blood sugar levels", Emphasis: true},
			{Name: "Cystatin_C", Description: "Kidney function marker", Emphasis: true},
			{Name: "PM2.5 Exposure", Description: "Air pollution particulate matter"},
			{Name: "Platelets", Description: "Blood cell count"},
			{Name: "Cholesterol", Description: "Blood lipid levels"},
			{Name: "Creatinine", Description: "Kidney function indicator"},
			{Name: "LDL", Description: "Low-density lipoprotein"},
			{Name: "Glucose", Description: "Blood sugar measurement"},
		},
	}
}
