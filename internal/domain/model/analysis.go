package model

// CommentClassification buckets a PR's review comments by topic, as judged
// by the scoring oracle.
type CommentClassification struct {
	CodeQuality          int
	LogicFunctionality   int
	PerformanceSecurity  int
	TestingDocumentation int
	RepeatedComments     int
	Ignorable            int
}

// ReviewAnalysis is the scoring oracle's assessment of a pull request's
// review feedback. A zero value is the fallback when the oracle returns
// unparseable output.
type ReviewAnalysis struct {
	Scores         QualityScores
	Classification CommentClassification
	Reasoning      map[string]string
}

// OverallScore averages the four feedback-quality subscores. UIUX is
// excluded: the oracle only populates it for PRs with visible UI changes.
func (a ReviewAnalysis) OverallScore() float64 {
	sum := a.Scores.CodeQuality +
		a.Scores.LogicFunctionality +
		a.Scores.PerformanceSecurity +
		a.Scores.TestingDocumentation
	return float64(sum) / 4
}
