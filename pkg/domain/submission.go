package domain

// Submission is the payload handed to the application submission service.
type Submission struct {
	GuideID        string          `json:"guide_id"`
	ServiceType    string          `json:"service_type"`
	Answers        Answers         `json:"answers"`
	FileReferences []FileReference `json:"file_references"`
}

// NewSubmission assembles the payload for g. File references follow field declaration order.
func NewSubmission(g *Guide, answers Answers) Submission {
	sub := Submission{
		GuideID:     g.ID,
		ServiceType: g.ServiceType,
		Answers:     answers.Clone(),
	}
	for _, f := range g.FileFields() {
		if ref, ok := sub.Answers[f.Name].(*FileReference); ok && ref != nil {
			sub.FileReferences = append(sub.FileReferences, *ref)
		}
	}
	return sub
}
