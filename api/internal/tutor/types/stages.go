package types

// Typed stage payloads. The remote service replies with loose JSON; all
// optional fields are explicit here and validated at the boundary rather than
// poked at deep inside the orchestrator.

// GeneratedProblem — выход генерации задачи.
type GeneratedProblem struct {
	Problem    string `json:"problem"`
	Answer     string `json:"answer,omitempty"`
	Solution   string `json:"solution,omitempty"`
	GradeLevel string `json:"grade_level,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Topic      string `json:"topic,omitempty"`
}

// StudentSimulation mirrors the free-form attempt JSON. The historical field
// name "thoughtprocess" (no underscore) is kept for wire compatibility.
type StudentSimulation struct {
	ThoughtProcess   string   `json:"thoughtprocess,omitempty"`
	StepsToSolve     []string `json:"steps_to_solve,omitempty"`
	DisabilityImpact string   `json:"disability_impact,omitempty"`
	FinalAnswer      string   `json:"final_answer,omitempty"`
	Answer           string   `json:"answer,omitempty"`

	IntentionallyIncorrect bool `json:"is_final_answer_intentionally_incorrect,omitempty"`
}

type MistakeAnalysis struct {
	Type      string `json:"type,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

type ThoughtAnalysis struct {
	Thought         string          `json:"thought,omitempty"`
	MistakeAnalysis MistakeAnalysis `json:"mistake_analysis,omitempty"`
	Remediation     []string        `json:"remediation,omitempty"`
}

type TeachingStrategies struct {
	ImmediateStrategies []string `json:"immediate_strategies,omitempty"`
	Accommodations      []string `json:"accommodations,omitempty"`
	LongTermSupport     []string `json:"long_term_support,omitempty"`
}

// ConversationTurn — одна реплика диалога тьютора.
type ConversationTurn struct {
	Speaker  string `json:"speaker"`
	Text     string `json:"text"`
	Strategy string `json:"strategy,omitempty"`
	Emotion  string `json:"emotion,omitempty"`
}

type TutorSession struct {
	Conversation       []ConversationTurn `json:"conversation,omitempty"`
	LearningObjectives []string           `json:"learning_objectives,omitempty"`
	FollowUpActivities []string           `json:"follow_up_activities,omitempty"`
	TestQuestion       string             `json:"test_question,omitempty"`
	ExpectedAnswer     string             `json:"expected_answer,omitempty"`
}

type ConsistencyCheck struct {
	Score   float64 `json:"score"`
	Status  string  `json:"status,omitempty"`
	Details string  `json:"details,omitempty"`
}

// ConsistencyReport scores how coherent simulation, diagnosis and dialogue
// are with each other. Score is clamped to [0,1] at the boundary.
type ConsistencyReport struct {
	OverallConsistencyScore float64                     `json:"overall_consistency_score"`
	Checks                  map[string]ConsistencyCheck `json:"checks,omitempty"`
	Recommendations         []string                    `json:"recommendations,omitempty"`
	Flags                   []string                    `json:"flags,omitempty"`
}

// Clamp enforces the [0,1] invariant on scores coming off the wire.
func (c *ConsistencyReport) Clamp() {
	if c == nil {
		return
	}
	if c.OverallConsistencyScore < 0 {
		c.OverallConsistencyScore = 0
	}
	if c.OverallConsistencyScore > 1 {
		c.OverallConsistencyScore = 1
	}
}

type Performance struct {
	ConsistencyScore float64 `json:"consistency_score"`
	AccuracyRate     float64 `json:"accuracy_rate"`
	Trend            string  `json:"trend"`
}

// Recommendation — adaptive difficulty plan, remote or locally derived.
type Recommendation struct {
	RecommendedDifficulty string      `json:"recommended_difficulty"`
	Reasoning             string      `json:"reasoning"`
	Confidence            float64     `json:"confidence"`
	CurrentPerformance    Performance `json:"current_performance"`
	Recommendations       []string    `json:"recommendations,omitempty"`
}
