package models

type QuestionOption struct {
	ID         int64  `json:"id"`
	OptionText string `json:"option_text"`
	Order      int    `json:"order"`
}

type Question struct {
	ID           int64            `json:"id"`
	QuestionText string           `json:"question_text"`
	Category     string           `json:"category"`
	Order        int              `json:"order"`
	Options      []QuestionOption `json:"options"`
}

type Questionnaire struct {
	Questions      []Question `json:"questions"`
	TotalQuestions int        `json:"total_questions"`
}

type Answer struct {
	QuestionID int64 `json:"question_id"`
	OptionID   int64 `json:"option_id"`
}

type AssessmentSubmission struct {
	Answers []Answer `json:"answers"`
}

// ProfileSummary is the player-type synthesis produced by an assessment.
type ProfileSummary struct {
	PrimaryType          string             `json:"primary_type"`
	PrimaryTypeLabel     string             `json:"primary_type_label"`
	PrimaryScore         float64            `json:"primary_score"`
	SecondaryType        *string            `json:"secondary_type"`
	SecondaryTypeLabel   *string            `json:"secondary_type_label"`
	SecondaryScore       *float64           `json:"secondary_score"`
	Subtype              *string            `json:"subtype"`
	SubtypeLabel         *string            `json:"subtype_label"`
	Description          string             `json:"description"`
	PlayStyleSummary     string             `json:"play_style_summary"`
	ConversationGuidance string             `json:"conversation_guidance"`
	PreferenceBreakdown  map[string]float64 `json:"preference_breakdown"`
}
