package gemini

// Per-stage prompt templates. Each demands STRICT JSON matching the stage
// struct; anything else is stripped of code fences and re-tried as-is.

const promptProblem = `You are a math curriculum writer.
Create ONE %s-difficulty word problem appropriate for a %s grade student.
Return STRICT JSON:
{
  "problem": "the problem text",
  "answer": "the single correct final answer",
  "solution": "short worked solution",
  "grade_level": "%s",
  "difficulty": "%s",
  "topic": "short topic label"
}`

const promptSimulate = `You are simulating how a student with %s would attempt this math problem.
Stay faithful to the documented cognitive patterns of that disability.
Target correctness of the final answer: %s.
Expected correct answer (if known): %s.

Problem: %s

Return STRICT JSON:
{
  "thoughtprocess": "first-person narration of the student's thinking",
  "steps_to_solve": ["step 1", "step 2", "..."],
  "disability_impact": "how the disability shaped this attempt",
  "final_answer": "the student's final answer",
  "is_final_answer_intentionally_incorrect": true
}`

const promptThought = `You are a special-education diagnostician.
A student with %s attempted this problem.

Problem: %s
Attempt (JSON): %s

Analyze the thought process. Return STRICT JSON:
{
  "thought": "analysis of the reasoning shown",
  "mistake_analysis": {"type": "...", "severity": "low|medium|high", "frequency": "rare|occasional|frequent"},
  "remediation": ["short remediation idea", "..."]
}`

const promptStrategies = `You are an inclusive-education specialist.
Propose teaching strategies for a student with %s based on this attempt.

Problem: %s
Attempt (JSON): %s
Diagnosis (JSON): %s

Return STRICT JSON:
{
  "immediate_strategies": ["...", "..."],
  "accommodations": ["...", "..."],
  "long_term_support": ["...", "..."]
}`

const promptTutor = `You are an experienced tutor working with a student with %s.
Write a short tutoring dialogue (6-10 turns) that addresses the diagnosed
difficulties, then one quick-check question to verify mastery.

Problem: %s
Attempt (JSON): %s
Diagnosis (JSON): %s

Return STRICT JSON:
{
  "conversation": [{"speaker": "Tutor|Student", "text": "...", "strategy": "...", "emotion": "..."}],
  "learning_objectives": ["..."],
  "follow_up_activities": ["..."],
  "test_question": "a short single-question check for understanding",
  "expected_answer": "the correct answer to the test question"
}`

const promptConsistency = `You are validating a simulated tutoring session for internal coherence.

Problem: %s
Disability simulated: %s
Expected answer: %s
Student attempt (JSON): %s

Judge whether the attempt, its errors and the disability portrayal are
mutually consistent. Return STRICT JSON:
{
  "overall_consistency_score": 0.0,
  "checks": {"step_answer_consistency": {"score": 0.0, "status": "...", "details": "..."}},
  "recommendations": ["..."],
  "flags": ["critical issue, empty array when none"]
}`

const promptAdaptive = `You are an adaptive-difficulty planner for a tutoring system.

Recent session history (JSON, newest first): %s
Current difficulty: %s

Recommend the next difficulty ("easy" | "medium" | "hard"). Return STRICT JSON:
{
  "recommended_difficulty": "easy|medium|hard",
  "reasoning": "...",
  "confidence": 0.0,
  "current_performance": {"consistency_score": 0.0, "accuracy_rate": 0.0, "trend": "improving|stable|declining"},
  "recommendations": ["..."]
}`
