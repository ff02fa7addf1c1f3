package research

// Analyst is one persona produced by the remote workflow.
type Analyst struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	Role        string `json:"role"`
	Description string `json:"description"`
}
