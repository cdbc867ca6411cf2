package workspace

// FileFilter is one entry of a file selection dialog filter list
type FileFilter struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// SelectionPolicy tells the presentation layer how to open its file dialog
type SelectionPolicy struct {
	Category Category     `json:"category"`
	Multiple bool         `json:"multiple"`
	Filters  []FileFilter `json:"filters"`
}

// Selection returns the dialog policy for a category
func Selection(category Category) (SelectionPolicy, error) {
	if _, err := category.Dir(); err != nil {
		return SelectionPolicy{}, err
	}
	if category == CategoryCandidate {
		return SelectionPolicy{
			Category: category,
			Multiple: true,
			Filters:  []FileFilter{{Name: "PDF Documents", Extensions: []string{"pdf"}}},
		}, nil
	}
	return SelectionPolicy{
		Category: category,
		Filters:  []FileFilter{{Name: "Job Description", Extensions: []string{"txt", "pdf", "docx"}}},
	}, nil
}
