// internal/conversation/step.go
package conversation

// Step identifies a position in the fixed intake sequence. StepIdle means no
// question is outstanding; StepComplete is never stored, the session is
// cleared instead.
type Step int

const (
	StepIdle Step = iota
	StepAge
	StepHeight
	StepWeight
	StepGender
	StepGoal
	StepDiet
	StepFoods
	StepComplete
)

var stepNames = map[Step]string{
	StepIdle:     "idle",
	StepAge:      "age",
	StepHeight:   "height",
	StepWeight:   "weight",
	StepGender:   "gender",
	StepGoal:     "goal",
	StepDiet:     "diet",
	StepFoods:    "foods",
	StepComplete: "complete",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// transitions maps each collecting step to its successor once the answer
// validates. Invalid input keeps the current step.
var transitions = map[Step]Step{
	StepAge:    StepHeight,
	StepHeight: StepWeight,
	StepWeight: StepGender,
	StepGender: StepGoal,
	StepGoal:   StepDiet,
	StepDiet:   StepFoods,
	StepFoods:  StepComplete,
}

// prompts asks for the value a step collects. Re-issued verbatim when
// validation fails.
var prompts = map[Step]string{
	StepAge:    "لطفاً سن خود را به عدد وارد کنید:",
	StepHeight: "قد (سانتی‌متر) را وارد کنید:",
	StepWeight: "وزن (کیلوگرم) را وارد کنید:",
	StepGender: "جنسیت (مرد/زن) را وارد کنید:",
	StepGoal:   "هدف (مثلاً کاهش وزن یا عضله‌سازی) را وارد کنید:",
	StepDiet:   "محدودیت غذایی یا آلرژی دارید؟ اگر نه 'ندارد' بنویسید:",
	StepFoods:  "غذاهای مورد علاقه خود را بنویسید (مثلاً: مرغ، برنج، سبزی):",
}

var invalidPrompts = map[Step]string{
	StepAge:    "لطفاً سن را به صورت عدد وارد کنید.",
	StepHeight: "قد را به صورت عدد (سانتی‌متر) وارد کنید.",
	StepWeight: "وزن را به صورت عدد وارد کنید.",
}
