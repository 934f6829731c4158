package domain

// DraftOptions configures a single email generation call.
type DraftOptions struct {
	Template           string `json:"template"`
	Tone               string `json:"tone"`
	Length             string `json:"length"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

const (
	ToneFormal       = "formal"
	ToneEnthusiastic = "enthusiastic"
	ToneDirect       = "direct"

	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

func ValidTemplate(t string) bool {
	return TargetRole(t).Valid()
}

func ValidTone(t string) bool {
	return t == ToneFormal || t == ToneEnthusiastic || t == ToneDirect
}

func ValidLength(l string) bool {
	return l == LengthShort || l == LengthMedium || l == LengthLong
}

// Normalize fills unset fields with the documented defaults. The template
// default comes from the professor's target role, seeded by the caller.
func (o DraftOptions) Normalize(role TargetRole) DraftOptions {
	if o.Template == "" {
		o.Template = string(role)
	}
	if o.Template == "" {
		o.Template = string(RoleSummerIntern)
	}
	if o.Tone == "" {
		o.Tone = ToneFormal
	}
	if o.Length == "" {
		o.Length = LengthMedium
	}
	return o
}
