package models

// ConflictReason names why an import was judged to collide.
type ConflictReason string

const (
	ConflictReasonTitle     ConflictReason = "duplicate_title"
	ConflictReasonSourceURL ConflictReason = "duplicate_source_url"
)

// Conflict pairs a not-yet-persisted import with the persisted recipe it
// collides with. Conflicts are ephemeral: produced by detection, consumed
// once by resolution, never stored.
type Conflict struct {
	ExistingRecipe Recipe         `json:"existingRecipe"`
	ImportedRecipe Recipe         `json:"importedRecipe"`
	Reason         ConflictReason `json:"reason"`
}

// ResolutionAction is the caller's choice for one conflict.
type ResolutionAction string

const (
	ActionSkip      ResolutionAction = "skip"
	ActionOverwrite ResolutionAction = "overwrite"
	ActionCreateNew ResolutionAction = "create_new"
	ActionMerge     ResolutionAction = "merge"
)

// Resolution is paired 1:1 and order-aligned with a conflict list. Index
// alignment is the caller's contract.
type Resolution struct {
	Action   ResolutionAction `json:"action"`
	NewTitle string           `json:"newTitle,omitempty"`
}

// ResolutionOutcome reports one conflict's resolution result.
type ResolutionOutcome struct {
	Success     bool             `json:"success"`
	Action      ResolutionAction `json:"action"`
	RecipeID    string           `json:"recipeId,omitempty"`
	RecipeTitle string           `json:"recipeTitle"`
	Error       string           `json:"error,omitempty"`
}
